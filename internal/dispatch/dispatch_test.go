package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/internal/llm"
	"luna/internal/speech"
	"luna/internal/tool"
)

// scripted replays replies in order and records every history it was sent.
type scripted struct {
	replies []llm.Reply
	errs    []error
	seen    [][]llm.Turn
}

func (s *scripted) Generate(_ context.Context, h []llm.Turn) (llm.Reply, error) {
	i := len(s.seen)
	s.seen = append(s.seen, h)
	if i < len(s.errs) && s.errs[i] != nil {
		return llm.Reply{}, s.errs[i]
	}
	if i >= len(s.replies) {
		return llm.Reply{Text: "done"}, nil
	}
	return s.replies[i], nil
}

type recordingTools struct {
	reg   *tool.Registry
	calls []string
}

func (r *recordingTools) Invoke(ctx context.Context, name string, args tool.Args) (tool.Result, error) {
	r.calls = append(r.calls, name)
	return r.reg.Invoke(ctx, name, args)
}

func newTools(t *testing.T) *recordingTools {
	t.Helper()
	reg := tool.NewRegistry()
	require.NoError(t, reg.Register(tool.Descriptor{
		Name:        "create_file",
		Description: "Creates a file.",
		Params:      []tool.Param{{Name: "filename", Type: tool.String, Required: true}},
	}, func(_ context.Context, a tool.Args) (tool.Result, error) {
		return tool.Result{Output: "File '" + a.String("filename") + "' created.", Speech: "Created " + a.String("filename") + "."}, nil
	}))
	require.NoError(t, reg.Register(tool.Descriptor{
		Name:        "delete_file",
		Description: "Deletes a file.",
		Params:      []tool.Param{{Name: "filename", Type: tool.String, Required: true}},
	}, func(_ context.Context, a tool.Args) (tool.Result, error) {
		return tool.Result{}, tool.NotFound("I couldn't find "+a.String("filename")+".", "File not found.")
	}))
	reg.Seal()
	return &recordingTools{reg: reg}
}

func TestEmptyCommandDoesNothing(t *testing.T) {
	m := &scripted{}
	d := New(m, newTools(t), NewSession())
	out := &speech.Recorder{}

	_, err := d.Process(context.Background(), "   ", out)
	require.NoError(t, err)
	assert.Empty(t, m.seen)
	assert.Empty(t, out.Lines())
}

func TestFarewellSkipsModel(t *testing.T) {
	for _, text := range []string{"goodbye luna", "exit"} {
		m := &scripted{}
		d := New(m, newTools(t), NewSession())
		out := &speech.Recorder{}

		_, err := d.Process(context.Background(), text, out)
		assert.ErrorIs(t, err, ErrFarewell)
		assert.Equal(t, []string{"Goodbye!"}, out.Lines())
		assert.Empty(t, m.seen)
	}
}

func TestPlainAnswer(t *testing.T) {
	m := &scripted{replies: []llm.Reply{{Text: "Paris is the capital of France."}}}
	s := NewSession()
	out := &speech.Recorder{}

	reply, err := New(m, newTools(t), s).Process(context.Background(), "capital of france", out)
	require.NoError(t, err)
	assert.Equal(t, "Paris is the capital of France.", reply)
	assert.Equal(t, []string{"Paris is the capital of France."}, out.Lines())
	assert.Equal(t, 2, s.Len())
}

func TestCallsRunInOrderBeforeNextRequest(t *testing.T) {
	m := &scripted{replies: []llm.Reply{
		{Calls: []llm.Call{
			{ID: "1", Name: "create_file", Args: tool.Args{"filename": "a.txt"}},
			{ID: "2", Name: "create_file", Args: tool.Args{"filename": "b.txt"}},
		}},
		{Text: "Both files are ready."},
	}}
	tools := newTools(t)
	out := &speech.Recorder{}

	_, err := New(m, tools, NewSession()).Process(context.Background(), "make two files", out)
	require.NoError(t, err)

	assert.Equal(t, []string{"create_file", "create_file"}, tools.calls)
	require.Len(t, m.seen, 2)

	second := m.seen[1]
	require.Len(t, second, 3)
	last := second[2]
	assert.Equal(t, llm.RoleTool, last.Role)
	require.Len(t, last.Results, 2)
	assert.Equal(t, "1", last.Results[0].ID)
	assert.Equal(t, "File 'a.txt' created.", last.Results[0].Output)
	assert.Equal(t, "2", last.Results[1].ID)

	assert.Equal(t, []string{"Created a.txt.", "Created b.txt.", "Both files are ready."}, out.Lines())
}

func TestUnknownToolReportedAndLoopContinues(t *testing.T) {
	m := &scripted{replies: []llm.Reply{
		{Calls: []llm.Call{{ID: "x", Name: "launch_rocket"}}},
		{Text: "I can't do that."},
	}}
	out := &speech.Recorder{}

	reply, err := New(m, newTools(t), NewSession()).Process(context.Background(), "launch a rocket", out)
	require.NoError(t, err)
	assert.Equal(t, "I can't do that.", reply)

	results := m.seen[1][2].Results
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Output, "Failure: unknown tool")
}

func TestToolFailureIsSpokenAndReported(t *testing.T) {
	m := &scripted{replies: []llm.Reply{
		{Calls: []llm.Call{{ID: "d", Name: "delete_file", Args: tool.Args{"filename": "x.txt"}}}},
		{Text: ""},
	}}
	out := &speech.Recorder{}

	_, err := New(m, newTools(t), NewSession()).Process(context.Background(), "delete x", out)
	require.NoError(t, err)

	assert.Equal(t, []string{"I couldn't find x.txt."}, out.Lines())
	assert.Equal(t, "Failure: File not found.", m.seen[1][2].Results[0].Output)
}

func TestModelErrorApologizesAndKeepsTurns(t *testing.T) {
	s := NewSession()
	s.Append(llm.UserTurn("hi"), llm.Turn{Role: llm.RoleModel, Text: "Hello!"})

	m := &scripted{errs: []error{errors.New("503 unavailable")}}
	out := &speech.Recorder{}

	reply, err := New(m, newTools(t), s).Process(context.Background(), "what's new", out)
	require.NoError(t, err)
	assert.Equal(t, Apology, reply)
	assert.Equal(t, []string{Apology}, out.Lines())

	h := s.History()
	require.Len(t, h, 3)
	assert.Equal(t, llm.UserTurn("what's new"), h[2])
}

func TestModelErrorAfterToolKeepsItsResult(t *testing.T) {
	m := &scripted{
		replies: []llm.Reply{{Calls: []llm.Call{{ID: "1", Name: "create_file", Args: tool.Args{"filename": "a.txt"}}}}},
		errs:    []error{nil, errors.New("503 after tool ran")},
	}
	tools := newTools(t)
	s := NewSession()
	out := &speech.Recorder{}

	reply, err := New(m, tools, s).Process(context.Background(), "make a file", out)
	require.NoError(t, err)
	assert.Equal(t, Apology, reply)
	assert.Equal(t, []string{"create_file"}, tools.calls)

	h := s.History()
	require.Len(t, h, 3)
	assert.Equal(t, llm.RoleModel, h[1].Role)
	assert.Equal(t, "create_file", h[1].Calls[0].Name)
	assert.Equal(t, llm.RoleTool, h[2].Role)
	assert.Equal(t, "File 'a.txt' created.", h[2].Results[0].Output)

	m.errs = nil
	_, err = New(m, tools, s).Process(context.Background(), "try again", out)
	require.NoError(t, err)
	retry := m.seen[len(m.seen)-1]
	require.Len(t, retry, 4)
	assert.Equal(t, llm.RoleTool, retry[2].Role)
	assert.Equal(t, llm.UserTurn("try again"), retry[3])
}

func TestRunawayToolLoopStops(t *testing.T) {
	loop := llm.Reply{Calls: []llm.Call{{ID: "1", Name: "create_file", Args: tool.Args{"filename": "a"}}}}
	replies := make([]llm.Reply, maxRounds+2)
	for i := range replies {
		replies[i] = loop
	}
	m := &scripted{replies: replies}
	s := NewSession()
	out := &speech.Recorder{}

	reply, err := New(m, newTools(t), s).Process(context.Background(), "loop", out)
	require.NoError(t, err)
	assert.Equal(t, Apology, reply)
	assert.Len(t, m.seen, maxRounds+1)
	assert.Equal(t, 1+2*maxRounds, s.Len())
}

func TestSessionReset(t *testing.T) {
	s := NewSession()
	id := s.ID()
	s.Append(llm.UserTurn("a"))

	h := s.History()
	h[0].Text = "mutated"
	assert.Equal(t, "a", s.History()[0].Text)

	s.Reset()
	assert.Zero(t, s.Len())
	assert.NotEqual(t, id, s.ID())
}
