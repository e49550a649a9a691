// Package skills holds the desktop tools the assistant can invoke, either
// from a local intent or from a model function call.
package skills

import (
	"fmt"
	"time"

	"luna/internal/tool"
)

// Skills bundles the collaborators the tools act through. Zero-valued
// optional fields disable the tools that need them.
type Skills struct {
	Desktop string
	Opener  Opener
	Starter Starter
	Mailer  Mailer
	Stats   StatsSource
	Weather *WeatherClient
	Now     func() time.Time
}

type Options struct {
	DesktopDir string
	Mailer     Mailer
	Weather    *WeatherClient
}

// New wires the host implementations of every collaborator.
func New(opt Options) (*Skills, error) {
	desktop, err := ResolveDesktop(opt.DesktopDir)
	if err != nil {
		return nil, fmt.Errorf("resolve desktop: %w", err)
	}

	return &Skills{
		Desktop: desktop,
		Opener:  NewBrowserOpener(),
		Starter: ExecStarter{},
		Mailer:  opt.Mailer,
		Stats:   HostStats{},
		Weather: opt.Weather,
		Now:     time.Now,
	}, nil
}

func (s *Skills) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type entry struct {
	desc tool.Descriptor
	exec tool.Executable
}

func (s *Skills) entries() []entry {
	return []entry{
		{tool.Descriptor{
			Name:        "create_folder",
			Description: "Creates a new folder (directory) on the desktop.",
			Params: []tool.Param{
				{Name: "folder_name", Type: tool.String, Required: true, Description: "The name of the new folder."},
			},
		}, s.CreateFolder},
		{tool.Descriptor{
			Name:        "open_folder_or_drive",
			Description: "Opens a specific folder path, or a drive (like C: or D:) in the file manager.",
			Params: []tool.Param{
				{Name: "path", Type: tool.String, Required: true, Description: "The name of the folder, or the drive letter (e.g., 'C drive')."},
			},
		}, s.OpenFolderOrDrive},
		{tool.Descriptor{
			Name:        "create_file",
			Description: "Creates a new file on the desktop.",
			Params: []tool.Param{
				{Name: "filename", Type: tool.String, Required: true, Description: "The name of the file."},
				{Name: "content", Type: tool.String, Description: "Optional text to write into the file."},
			},
		}, s.CreateFile},
		{tool.Descriptor{
			Name:        "delete_file",
			Description: "Deletes a file from the desktop.",
			Params: []tool.Param{
				{Name: "filename", Type: tool.String, Required: true},
			},
		}, s.DeleteFile},
		{tool.Descriptor{
			Name:        "move_file",
			Description: "Moves a desktop file to a folder on desktop.",
			Params: []tool.Param{
				{Name: "filename", Type: tool.String, Required: true},
				{Name: "destination_folder", Type: tool.String, Required: true},
			},
		}, s.MoveFile},
		{tool.Descriptor{
			Name:        "sort_desktop_files",
			Description: "Sorts desktop files into folders by extension.",
		}, s.SortDesktopFiles},
		{tool.Descriptor{
			Name:        "open_application",
			Description: "Opens a desktop application by name.",
			Params: []tool.Param{
				{Name: "app_name", Type: tool.String, Required: true},
			},
		}, s.OpenApplication},
		{tool.Descriptor{
			Name:        "open_website",
			Description: "Opens a website or URL.",
			Params: []tool.Param{
				{Name: "url_or_query", Type: tool.String, Required: true},
			},
		}, s.OpenWebsite},
		{tool.Descriptor{
			Name:        "search_web",
			Description: "Searches the web.",
			Params: []tool.Param{
				{Name: "query", Type: tool.String, Required: true},
			},
		}, s.SearchWeb},
		{tool.Descriptor{
			Name:        "send_email",
			Description: "Sends an email via SMTP, or drafts it in the desktop mail client.",
			Params: []tool.Param{
				{Name: "to", Type: tool.String, Required: true},
				{Name: "subject", Type: tool.String},
				{Name: "body", Type: tool.String},
			},
		}, s.SendEmail},
		{tool.Descriptor{
			Name:        "get_system_info",
			Description: "Reports RAM and disk usage.",
		}, s.SystemInfo},
		{tool.Descriptor{
			Name:        "get_time",
			Description: "Finds the current time in a city.",
			Params: []tool.Param{
				{Name: "city", Type: tool.String, Required: true, Description: "The city name."},
			},
		}, s.Time},
		{tool.Descriptor{
			Name:        "get_temperature",
			Description: "Gets current temperature for a city (OpenWeatherMap)",
			Params: []tool.Param{
				{Name: "city", Type: tool.String, Required: true, Description: "The city name."},
			},
		}, s.Temperature},
	}
}

// Register adds every tool to r in a fixed order.
func (s *Skills) Register(r *tool.Registry) error {
	for _, e := range s.entries() {
		if err := r.Register(e.desc, e.exec); err != nil {
			return err
		}
	}
	return nil
}
