package intent

import (
	"strings"
	"unicode"

	"luna/internal/tool"
)

// Action is what a matched rule asks for: a tool invocation, or a reset of
// the chat session.
type Action struct {
	Tool  string
	Args  tool.Args
	Reset bool
}

// Rule recognizes one command shape and extracts its arguments.
type Rule struct {
	Name  string
	Match func(cmd string, env Env) (Action, bool)
}

// Env is what rules may consult besides the command text.
type Env struct {
	Exists func(path string) bool
}

func call(name string, args tool.Args) Action {
	return Action{Tool: name, Args: args}
}

func prefixed(cmd string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(cmd, p); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

func containsAny(cmd string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(cmd, s) {
			return true
		}
	}
	return false
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// looksLikeLocation is true for drive letters, existing paths and the desktop.
func looksLikeLocation(name string, env Env) bool {
	if len(name) <= 2 && (isAlpha(name) || strings.Contains(name, ":")) {
		return true
	}
	return strings.Contains(name, "desktop") || (env.Exists != nil && env.Exists(name))
}

func matchOpen(cmd string, env Env) (Action, bool) {
	name, ok := prefixed(cmd, "open ")
	if !ok {
		return Action{}, false
	}

	switch {
	case looksLikeLocation(name, env):
		return call("open_folder_or_drive", tool.Args{"path": name}), true
	case strings.Contains(name, ".") || strings.HasPrefix(name, "http"):
		return call("open_website", tool.Args{"url_or_query": name}), true
	default:
		return call("open_application", tool.Args{"app_name": name}), true
	}
}

func matchSearch(cmd string, _ Env) (Action, bool) {
	q, ok := prefixed(cmd, "search web for ", "search ")
	if !ok {
		return Action{}, false
	}
	return call("search_web", tool.Args{"query": q}), true
}

func matchCreateFolder(cmd string, _ Env) (Action, bool) {
	name, ok := prefixed(cmd, "create folder ", "make folder ")
	if !ok {
		return Action{}, false
	}
	return call("create_folder", tool.Args{"folder_name": name}), true
}

func matchCreateFile(cmd string, _ Env) (Action, bool) {
	name, ok := prefixed(cmd, "create file ")
	if !ok {
		return Action{}, false
	}
	return call("create_file", tool.Args{"filename": name}), true
}

func matchDeleteFile(cmd string, _ Env) (Action, bool) {
	name, ok := prefixed(cmd, "delete file ")
	if !ok {
		return Action{}, false
	}
	return call("delete_file", tool.Args{"filename": name}), true
}

func matchMoveFile(cmd string, _ Env) (Action, bool) {
	rest, ok := prefixed(cmd, "move file ")
	if !ok {
		return Action{}, false
	}
	name, dest, ok := strings.Cut(rest, " to ")
	if !ok {
		return Action{}, false
	}
	return call("move_file", tool.Args{
		"filename":           strings.TrimSpace(name),
		"destination_folder": strings.TrimSpace(dest),
	}), true
}

func matchSort(cmd string, _ Env) (Action, bool) {
	if !containsAny(cmd, "sort desktop", "sort my desktop", "organize desktop") {
		return Action{}, false
	}
	return call("sort_desktop_files", tool.Args{}), true
}

func matchSystemInfo(cmd string, _ Env) (Action, bool) {
	if !containsAny(cmd, "system info", "system information") {
		return Action{}, false
	}
	return call("get_system_info", tool.Args{}), true
}

func matchTime(cmd string, _ Env) (Action, bool) {
	city, ok := prefixed(cmd, "time in ")
	if !ok {
		return Action{}, false
	}
	return call("get_time", tool.Args{"city": city}), true
}

func matchReset(cmd string, _ Env) (Action, bool) {
	switch cmd {
	case "reset chat", "clear chat", "reset conversation":
		return Action{Reset: true}, true
	}
	return Action{}, false
}

// Rules is the matching table. Order decides which rule wins.
var Rules = []Rule{
	{Name: "open", Match: matchOpen},
	{Name: "search", Match: matchSearch},
	{Name: "create_folder", Match: matchCreateFolder},
	{Name: "create_file", Match: matchCreateFile},
	{Name: "delete_file", Match: matchDeleteFile},
	{Name: "move_file", Match: matchMoveFile},
	{Name: "sort_desktop", Match: matchSort},
	{Name: "system_info", Match: matchSystemInfo},
	{Name: "time", Match: matchTime},
	{Name: "reset", Match: matchReset},
}
