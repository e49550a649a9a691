package skills

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	log "log/slog"

	"luna/internal/tool"
)

// ResolveDesktop picks the desktop directory: the override when set, then a
// OneDrive-synced desktop when it exists, then ~/Desktop.
func ResolveDesktop(override string) (string, error) {
	if override != "" {
		return override, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	synced := filepath.Join(home, "OneDrive", "Desktop")
	if isDir(synced) {
		return synced, nil
	}
	return filepath.Join(home, "Desktop"), nil
}

// ResolveFolder maps a spoken folder or drive name to a filesystem path.
// "C", "c" and "C:" all resolve to the same drive root.
func ResolveFolder(desktop, name string) string {
	name = strings.TrimSpace(name)
	lower := strings.ToLower(name)

	switch {
	case strings.Contains(lower, "desktop"):
		return desktop
	case isDriveName(name):
		return strings.ToUpper(name[:1]) + `:\`
	case exists(name):
		return name
	default:
		return filepath.Join(desktop, name)
	}
}

func isDriveName(name string) bool {
	switch len(name) {
	case 1:
		return unicode.IsLetter(rune(name[0]))
	case 2:
		return unicode.IsLetter(rune(name[0])) && name[1] == ':'
	}
	return false
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

// path joins name onto the desktop. Names that would land outside it are
// rejected.
func (s *Skills) path(name string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", tool.InvalidArgument(
			fmt.Sprintf("%s is outside your desktop.", name),
			fmt.Sprintf("Path '%s' is outside the desktop directory.", name))
	}
	return filepath.Join(s.Desktop, name), nil
}

func (s *Skills) CreateFolder(_ context.Context, args tool.Args) (tool.Result, error) {
	name := args.String("folder_name")
	if name == "" {
		return tool.Result{}, tool.InvalidArgument("You need to provide a folder name.", "No folder name provided.")
	}

	dir, err := s.path(name)
	if err != nil {
		return tool.Result{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return tool.Result{}, tool.Internal("Sorry, I couldn't create the folder.", "Could not create folder.", err)
	}

	return tool.Result{
		Output: fmt.Sprintf("Folder '%s' created successfully on the desktop.", name),
		Speech: fmt.Sprintf("I've created the folder %s on your desktop.", name),
	}, nil
}

func (s *Skills) OpenFolderOrDrive(_ context.Context, args tool.Args) (tool.Result, error) {
	name := args.String("path")
	if name == "" {
		return tool.Result{}, tool.InvalidArgument("Please tell me which folder or drive to open.", "No path or drive specified.")
	}

	target := ResolveFolder(s.Desktop, name)
	if !exists(target) {
		return tool.Result{}, tool.NotFound(
			fmt.Sprintf("I couldn't find the folder or drive: %s.", name),
			fmt.Sprintf("Path or drive '%s' not found.", name))
	}

	if err := s.Opener.OpenFile(target); err != nil {
		return tool.Result{}, tool.Fail(tool.KindUnavailable,
			"Sorry, I couldn't open that folder or drive.", "Could not open folder or drive.", err)
	}

	return tool.Result{
		Output: fmt.Sprintf("Successfully opened %s.", name),
		Speech: fmt.Sprintf("Opening %s in the file manager.", name),
	}, nil
}

const defaultFileContent = "File '%s' created by Luna."

// withDefaultExt appends .txt when the name carries no extension at all.
func withDefaultExt(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".txt"
}

func (s *Skills) CreateFile(_ context.Context, args tool.Args) (tool.Result, error) {
	name := args.String("filename")
	if name == "" {
		return tool.Result{}, tool.InvalidArgument("You need to provide a filename.", "No filename provided.")
	}
	name = withDefaultExt(name)

	content := args.String("content")
	if content == "" {
		content = fmt.Sprintf(defaultFileContent, name)
	}

	path, err := s.path(name)
	if err != nil {
		return tool.Result{}, err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return tool.Result{}, tool.Internal("Sorry, I couldn't create the file.", "Could not create file.", err)
	}

	return tool.Result{
		Output: fmt.Sprintf("File '%s' created.", name),
		Speech: fmt.Sprintf("I've created the file %s on your desktop.", name),
	}, nil
}

func (s *Skills) DeleteFile(_ context.Context, args tool.Args) (tool.Result, error) {
	name := args.String("filename")
	if name == "" {
		return tool.Result{}, tool.InvalidArgument("You need to provide a filename to delete.", "No filename provided.")
	}

	path, err := s.path(name)
	if err != nil {
		return tool.Result{}, err
	}
	if !exists(path) {
		return tool.Result{}, fileNotFound(name)
	}

	if err := os.Remove(path); err != nil {
		return tool.Result{}, tool.Internal("Sorry, I couldn't delete the file.", "Could not delete file.", err)
	}

	return tool.Result{
		Output: fmt.Sprintf("File '%s' deleted.", name),
		Speech: fmt.Sprintf("Deleted %s from your desktop.", name),
	}, nil
}

// MoveFile moves a desktop file into a desktop folder, creating the folder.
// Nothing is created when the source is missing.
func (s *Skills) MoveFile(_ context.Context, args tool.Args) (tool.Result, error) {
	name := args.String("filename")
	dest := args.String("destination_folder")
	if name == "" || dest == "" {
		return tool.Result{}, tool.InvalidArgument(
			"Please provide both a filename and a destination folder.",
			"Missing filename or destination folder.")
	}

	src, err := s.path(name)
	if err != nil {
		return tool.Result{}, err
	}
	dir, err := s.path(dest)
	if err != nil {
		return tool.Result{}, err
	}
	if !exists(src) {
		return tool.Result{}, fileNotFound(name)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return tool.Result{}, tool.Internal("Sorry, I couldn't move the file.", "Could not move file.", err)
	}
	if err := os.Rename(src, filepath.Join(dir, filepath.Base(src))); err != nil {
		return tool.Result{}, tool.Internal("Sorry, I couldn't move the file.", "Could not move file.", err)
	}

	return tool.Result{
		Output: fmt.Sprintf("Moved file '%s' to folder '%s'.", name, dest),
		Speech: fmt.Sprintf("Moved %s to %s.", name, dest),
	}, nil
}

func fileNotFound(name string) *tool.Error {
	return tool.NotFound(
		fmt.Sprintf("I couldn't find %s on your desktop.", name),
		fmt.Sprintf("File '%s' not found.", name))
}

// splitExt returns the extension the way a file manager sees it: leading
// dots belong to the name, so ".env" has none.
func splitExt(name string) string {
	base := strings.TrimLeft(name, ".")
	ext := filepath.Ext(base)
	if ext == "." {
		return ""
	}
	return ext
}

func sortFolder(name string) string {
	ext := splitExt(name)
	if ext == "" {
		return "no_extension"
	}
	return strings.ToLower(ext[1:])
}

// SortDesktopFiles moves every regular desktop file into a folder named after
// its lowercased extension, or no_extension. A file whose folder name is
// taken by another file stays where it is.
func (s *Skills) SortDesktopFiles(_ context.Context, _ tool.Args) (tool.Result, error) {
	entries, err := os.ReadDir(s.Desktop)
	if err != nil {
		return tool.Result{}, tool.Internal("Sorry, I couldn't sort the desktop.", "Could not sort desktop.", err)
	}

	moved := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		dir := filepath.Join(s.Desktop, sortFolder(e.Name()))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn("Skipping file while sorting", "file", e.Name(), "folder", dir, "err", err)
			continue
		}
		if err := os.Rename(filepath.Join(s.Desktop, e.Name()), filepath.Join(dir, e.Name())); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Warn("File vanished while sorting", "file", e.Name())
				continue
			}
			return tool.Result{}, sortFailure(moved, err)
		}
		moved++
	}

	return tool.Result{
		Output: fmt.Sprintf("Successfully sorted %d files on the desktop.", moved),
		Speech: "I've sorted files on your desktop by type.",
	}, nil
}

func sortFailure(moved int, err error) *tool.Error {
	return tool.Internal("Sorry, I couldn't sort the desktop.",
		fmt.Sprintf("Could not sort desktop after moving %d files.", moved), err)
}
