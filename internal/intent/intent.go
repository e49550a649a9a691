// Package intent answers common commands locally, without the model.
package intent

import (
	"context"
	"errors"
	"os"
	"strings"

	log "log/slog"

	"luna/internal/speech"
	"luna/internal/tool"
)

const ResetReply = "Chat history cleared."

type Invoker interface {
	Invoke(ctx context.Context, name string, args tool.Args) (tool.Result, error)
}

type Resetter interface {
	Reset()
}

type Matcher struct {
	rules   []Rule
	env     Env
	tools   Invoker
	session Resetter
}

func NewMatcher(tools Invoker, session Resetter) *Matcher {
	return &Matcher{
		rules:   Rules,
		env:     Env{Exists: pathExists},
		tools:   tools,
		session: session,
	}
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// Match finds the first rule that recognizes cmd.
func (m *Matcher) Match(cmd string) (string, Action, bool) {
	cmd = strings.ToLower(strings.TrimSpace(cmd))
	for _, r := range m.rules {
		if a, ok := r.Match(cmd, m.env); ok {
			return r.Name, a, true
		}
	}
	return "", Action{}, false
}

// Handle runs the matching rule. It reports false when no rule matched or
// the handler failed unexpectedly, so the caller can fall back to the model.
// Tool failures are spoken and count as handled.
func (m *Matcher) Handle(ctx context.Context, cmd string, out speech.Speaker) (handled bool) {
	name, action, ok := m.Match(cmd)
	if !ok {
		return false
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("Local intent panicked", "rule", name, "panic", p)
			handled = false
		}
	}()

	log.Info("Local intent", "rule", name, "tool", action.Tool)

	if action.Reset {
		m.session.Reset()
		out.Say(ctx, ResetReply)
		return true
	}

	res, err := m.tools.Invoke(ctx, action.Tool, action.Args)
	if err == nil {
		out.Say(ctx, res.Speech)
		return true
	}

	if te, ok := tool.AsError(err); ok {
		log.Warn("Local intent failed", "rule", name, "kind", te.Kind, "err", err)
		out.Say(ctx, te.Say)
		return true
	}

	if errors.Is(err, tool.ErrUnknownTool) {
		log.Error("Local intent has no tool", "rule", name, "tool", action.Tool)
	} else {
		log.Error("Local intent failed", "rule", name, "err", err)
	}
	return false
}
