// Package llm adapts function-calling chat models to one provider-neutral
// conversation shape.
package llm

import (
	"context"
	"errors"

	"luna/internal/tool"
)

const SystemPrompt = "You are Luna, a helpful desktop voice assistant. Answer clearly and concisely " +
	"for spoken output. Prefer short, direct answers (1-3 sentences) unless asked " +
	"to explain in detail."

var ErrEmptyResponse = errors.New("model returned no candidates")

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// Call is a function call requested by the model.
type Call struct {
	ID   string
	Name string
	Args tool.Args
}

// CallResult answers one Call.
type CallResult struct {
	ID     string
	Name   string
	Output string
}

// Turn is one entry of the conversation history.
type Turn struct {
	Role    Role
	Text    string
	Calls   []Call
	Results []CallResult
}

func UserTurn(text string) Turn { return Turn{Role: RoleUser, Text: text} }

func ToolTurn(results []CallResult) Turn { return Turn{Role: RoleTool, Results: results} }

// Reply is one model response.
type Reply struct {
	Text  string
	Calls []Call
}

// Turn records the reply in history form.
func (r Reply) Turn() Turn {
	return Turn{Role: RoleModel, Text: r.Text, Calls: r.Calls}
}

// Model produces the next reply for a conversation. Tools are bound when
// the model is constructed.
type Model interface {
	Generate(ctx context.Context, history []Turn) (Reply, error)
}

// answered drops calls that the next tool turn does not answer; providers
// reject a function call sent without its response. The history itself is
// left untouched.
func answered(history []Turn) []Turn {
	out := make([]Turn, 0, len(history))
	for i, t := range history {
		if t.Role == RoleModel && len(t.Calls) > 0 {
			done := make(map[string]bool)
			if i+1 < len(history) && history[i+1].Role == RoleTool {
				for _, r := range history[i+1].Results {
					done[r.ID] = true
				}
			}
			calls := make([]Call, 0, len(t.Calls))
			for _, c := range t.Calls {
				if done[c.ID] {
					calls = append(calls, c)
				}
			}
			t.Calls = calls
			if t.Text == "" && len(t.Calls) == 0 {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}
