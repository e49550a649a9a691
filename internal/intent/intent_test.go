package intent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/internal/speech"
	"luna/internal/tool"
)

type fakeTools struct {
	calls []string
	args  []tool.Args
	err   error
	panic bool
}

func (f *fakeTools) Invoke(_ context.Context, name string, args tool.Args) (tool.Result, error) {
	if f.panic {
		panic("boom")
	}
	f.calls = append(f.calls, name)
	f.args = append(f.args, args)
	if f.err != nil {
		return tool.Result{}, f.err
	}
	return tool.Result{Output: name + " ok", Speech: name + " done"}, nil
}

type fakeSession struct{ resets int }

func (f *fakeSession) Reset() { f.resets++ }

func newMatcher(exists ...string) (*Matcher, *fakeTools, *fakeSession) {
	tools, sess := &fakeTools{}, &fakeSession{}
	m := NewMatcher(tools, sess)
	m.env.Exists = func(p string) bool {
		for _, e := range exists {
			if p == e {
				return true
			}
		}
		return false
	}
	return m, tools, sess
}

func TestMatchTable(t *testing.T) {
	cases := []struct {
		cmd  string
		rule string
		tool string
		args tool.Args
	}{
		{"open c", "open", "open_folder_or_drive", tool.Args{"path": "c"}},
		{"open d:", "open", "open_folder_or_drive", tool.Args{"path": "d:"}},
		{"open my desktop", "open", "open_folder_or_drive", tool.Args{"path": "my desktop"}},
		{"open /srv/music", "open", "open_folder_or_drive", tool.Args{"path": "/srv/music"}},
		{"open github.com", "open", "open_website", tool.Args{"url_or_query": "github.com"}},
		{"open https://go.dev", "open", "open_website", tool.Args{"url_or_query": "https://go.dev"}},
		{"open notepad", "open", "open_application", tool.Args{"app_name": "notepad"}},
		{"Open Task Manager", "open", "open_application", tool.Args{"app_name": "task manager"}},
		{"search web for go generics", "search", "search_web", tool.Args{"query": "go generics"}},
		{"search cute cats", "search", "search_web", tool.Args{"query": "cute cats"}},
		{"create folder projects", "create_folder", "create_folder", tool.Args{"folder_name": "projects"}},
		{"make folder music", "create_folder", "create_folder", tool.Args{"folder_name": "music"}},
		{"create file notes", "create_file", "create_file", tool.Args{"filename": "notes"}},
		{"delete file old.txt", "delete_file", "delete_file", tool.Args{"filename": "old.txt"}},
		{"move file a.txt to archive", "move_file", "move_file", tool.Args{"filename": "a.txt", "destination_folder": "archive"}},
		{"move file a to b to c", "move_file", "move_file", tool.Args{"filename": "a", "destination_folder": "b to c"}},
		{"please sort my desktop", "sort_desktop", "sort_desktop_files", tool.Args{}},
		{"organize desktop now", "sort_desktop", "sort_desktop_files", tool.Args{}},
		{"show system information", "system_info", "get_system_info", tool.Args{}},
		{"time in new york", "time", "get_time", tool.Args{"city": "new york"}},
	}

	m, _, _ := newMatcher("/srv/music")
	for _, tc := range cases {
		t.Run(tc.cmd, func(t *testing.T) {
			rule, action, ok := m.Match(tc.cmd)
			require.True(t, ok)
			assert.Equal(t, tc.rule, rule)
			assert.Equal(t, tc.tool, action.Tool)
			assert.Equal(t, tc.args, action.Args)
		})
	}
}

func TestNoMatch(t *testing.T) {
	m, _, _ := newMatcher()
	for _, cmd := range []string{
		"what is the capital of france",
		"tell me a joke",
		"move file without destination",
		"reset the chat please",
		"opening hours of the museum",
	} {
		_, _, ok := m.Match(cmd)
		assert.False(t, ok, cmd)
	}
}

func TestOpenRuleWinsOverLaterRules(t *testing.T) {
	m, _, _ := newMatcher()
	rule, action, ok := m.Match("open system info")
	require.True(t, ok)
	assert.Equal(t, "open", rule)
	assert.Equal(t, "open_application", action.Tool)
}

func TestHandleSpeaksToolResult(t *testing.T) {
	m, tools, _ := newMatcher()
	out := &speech.Recorder{}

	assert.True(t, m.Handle(context.Background(), "create file notes", out))
	assert.Equal(t, []string{"create_file"}, tools.calls)
	assert.Equal(t, []string{"create_file done"}, out.Lines())
}

func TestHandleReset(t *testing.T) {
	m, tools, sess := newMatcher()
	out := &speech.Recorder{}

	assert.True(t, m.Handle(context.Background(), "reset chat", out))
	assert.Equal(t, 1, sess.resets)
	assert.Empty(t, tools.calls)
	assert.Equal(t, []string{ResetReply}, out.Lines())
}

func TestHandleToolFailureIsHandled(t *testing.T) {
	m, tools, _ := newMatcher()
	tools.err = tool.NotFound("I couldn't find x.txt on your desktop.", "File 'x.txt' not found.")
	out := &speech.Recorder{}

	assert.True(t, m.Handle(context.Background(), "delete file x.txt", out))
	assert.Equal(t, []string{"I couldn't find x.txt on your desktop."}, out.Lines())
}

func TestHandleUnexpectedFailureFallsThrough(t *testing.T) {
	m, tools, _ := newMatcher()
	tools.err = errors.New("something odd")
	out := &speech.Recorder{}

	assert.False(t, m.Handle(context.Background(), "create file notes", out))
	assert.Empty(t, out.Lines())
}

func TestHandlePanicFallsThrough(t *testing.T) {
	m, tools, _ := newMatcher()
	tools.panic = true

	assert.False(t, m.Handle(context.Background(), "create file notes", &speech.Recorder{}))
}

func TestHandleNoMatch(t *testing.T) {
	m, tools, _ := newMatcher()
	assert.False(t, m.Handle(context.Background(), "how far is the moon", &speech.Recorder{}))
	assert.Empty(t, tools.calls)
}
