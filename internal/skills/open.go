package skills

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	log "log/slog"

	"github.com/pkg/browser"

	"luna/internal/tool"
)

// Opener hands URLs and paths to the desktop shell.
type Opener interface {
	OpenURL(url string) error
	OpenFile(path string) error
}

type BrowserOpener struct{}

func NewBrowserOpener() BrowserOpener {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return BrowserOpener{}
}

func (BrowserOpener) OpenURL(u string) error  { return browser.OpenURL(u) }
func (BrowserOpener) OpenFile(p string) error { return browser.OpenFile(p) }

// Starter launches a detached process.
type Starter interface {
	Start(name string, args ...string) error
}

type ExecStarter struct{}

func (ExecStarter) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Debug("Launched process exited", "cmd", name, "err", err)
		}
	}()
	return nil
}

var appsByOS = map[string]map[string][]string{
	"windows": {
		"notepad":        {"notepad.exe"},
		"calculator":     {"calc.exe"},
		"paint":          {"mspaint.exe"},
		"command prompt": {"cmd.exe"},
		"cmd":            {"cmd.exe"},
		"powershell":     {"powershell.exe"},
		"explorer":       {"explorer.exe"},
		"wordpad":        {"write.exe"},
		"control panel":  {"control.exe"},
		"task manager":   {"taskmgr.exe"},
	},
	"darwin": {
		"notepad":      {"open", "-a", "TextEdit"},
		"textedit":     {"open", "-a", "TextEdit"},
		"calculator":   {"open", "-a", "Calculator"},
		"terminal":     {"open", "-a", "Terminal"},
		"finder":       {"open", "-a", "Finder"},
		"explorer":     {"open", "-a", "Finder"},
		"task manager": {"open", "-a", "Activity Monitor"},
	},
	"linux": {
		"notepad":        {"gedit"},
		"text editor":    {"gedit"},
		"calculator":     {"gnome-calculator"},
		"terminal":       {"x-terminal-emulator"},
		"command prompt": {"x-terminal-emulator"},
		"cmd":            {"x-terminal-emulator"},
		"explorer":       {"xdg-open", "."},
		"files":          {"xdg-open", "."},
		"control panel":  {"gnome-control-center"},
		"task manager":   {"gnome-system-monitor"},
	},
}

// appCommand returns the argv for a well-known application name.
func appCommand(goos, name string) ([]string, bool) {
	argv, ok := appsByOS[goos][strings.ToLower(strings.TrimSpace(name))]
	return argv, ok
}

// startByName asks the OS to start an arbitrary application by name.
func startByName(goos, name string) []string {
	switch goos {
	case "windows":
		return []string{"cmd", "/c", "start", "", name}
	case "darwin":
		return []string{"open", "-a", name}
	default:
		return []string{strings.ReplaceAll(strings.ToLower(name), " ", "-")}
	}
}

func (s *Skills) OpenApplication(_ context.Context, args tool.Args) (tool.Result, error) {
	name := args.String("app_name")
	if name == "" {
		return tool.Result{}, tool.InvalidArgument("Please tell me which application to open.", "No application name provided.")
	}

	argv, known := appCommand(runtime.GOOS, name)
	if !known {
		argv = startByName(runtime.GOOS, name)
	}

	if err := s.Starter.Start(argv[0], argv[1:]...); err != nil {
		return tool.Result{}, tool.Fail(tool.KindUnavailable,
			fmt.Sprintf("Sorry, I couldn't open %s.", name), "Could not open application.", err)
	}

	if known {
		return tool.Result{
			Output: fmt.Sprintf("Application '%s' opened.", name),
			Speech: fmt.Sprintf("Opening %s.", name),
		}, nil
	}
	return tool.Result{
		Output: fmt.Sprintf("Attempted to open application '%s' using start command.", name),
		Speech: fmt.Sprintf("Trying to open %s.", name),
	}, nil
}

func searchURL(query string) string {
	return "https://www.google.com/search?q=" + url.QueryEscape(query)
}

// looksLikeURL treats anything with a scheme or a dot as an address.
func looksLikeURL(s string) bool {
	return strings.HasPrefix(s, "http") || strings.Contains(s, ".")
}

func (s *Skills) OpenWebsite(_ context.Context, args tool.Args) (tool.Result, error) {
	q := args.String("url_or_query")
	if q == "" {
		return tool.Result{}, tool.InvalidArgument("Please tell me what website to open.", "No URL or query provided.")
	}

	if looksLikeURL(q) {
		target := q
		if !strings.HasPrefix(q, "http") {
			target = "https://" + q
		}
		if err := s.Opener.OpenURL(target); err != nil {
			return tool.Result{}, browserFailure("Sorry, I couldn't open the website.", err)
		}
		return tool.Result{
			Output: "Opened website: " + q,
			Speech: "Opening in your browser.",
		}, nil
	}

	if err := s.Opener.OpenURL(searchURL(q)); err != nil {
		return tool.Result{}, browserFailure("Sorry, I couldn't open the website.", err)
	}
	return tool.Result{
		Output: "Searched web for: " + q,
		Speech: "Searching the web.",
	}, nil
}

func (s *Skills) SearchWeb(_ context.Context, args tool.Args) (tool.Result, error) {
	q := args.String("query")
	if q == "" {
		return tool.Result{}, tool.InvalidArgument("Please tell me what to search for.", "No search query provided.")
	}

	if err := s.Opener.OpenURL(searchURL(q)); err != nil {
		return tool.Result{}, browserFailure("Sorry, I couldn't perform the search.", err)
	}

	return tool.Result{
		Output: "Web search initiated for: " + q,
		Speech: fmt.Sprintf("Here are results for %s.", q),
	}, nil
}

func browserFailure(say string, err error) *tool.Error {
	return tool.Fail(tool.KindUnavailable, say, "Could not open the browser.", err)
}
