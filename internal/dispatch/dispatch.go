// Package dispatch runs the function-calling loop between the user's
// command, the model and the tool registry.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "log/slog"

	"luna/internal/llm"
	"luna/internal/metrics"
	"luna/internal/speech"
	"luna/internal/tool"
)

const (
	Farewell = "Goodbye!"
	Apology  = "Sorry, I ran into a little trouble with that request."

	maxRounds = 8
)

var (
	// ErrFarewell asks the host to shut down cleanly.
	ErrFarewell      = errors.New("farewell")
	ErrTooManyRounds = errors.New("too many tool rounds")
)

// Invoker runs one tool by name.
type Invoker interface {
	Invoke(ctx context.Context, name string, args tool.Args) (tool.Result, error)
}

type Dispatcher struct {
	model   llm.Model
	tools   Invoker
	session *Session
}

func New(model llm.Model, tools Invoker, session *Session) *Dispatcher {
	return &Dispatcher{model: model, tools: tools, session: session}
}

// IsFarewell reports whether a command ends the assistant.
func IsFarewell(text string) bool {
	text = strings.ToLower(text)
	return strings.Contains(text, "goodbye") || strings.Contains(text, "exit")
}

// Process handles one command through the model. It returns ErrFarewell
// after saying goodbye. A model failure is spoken as an apology; the turns
// appended so far stay in the session so the user can retry.
func (d *Dispatcher) Process(ctx context.Context, text string, out speech.Speaker) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}

	if IsFarewell(text) {
		out.Say(ctx, Farewell)
		return Farewell, ErrFarewell
	}

	reply, err := d.converse(ctx, text, out)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		log.Error("Error processing command", "session", d.session.ID(), "err", err)
		out.Say(ctx, Apology)
		return Apology, nil
	}

	out.Say(ctx, reply)
	return reply, nil
}

func (d *Dispatcher) converse(ctx context.Context, text string, out speech.Speaker) (string, error) {
	d.session.Append(llm.UserTurn(text))

	reply, err := d.model.Generate(ctx, d.session.History())
	if err != nil {
		return "", err
	}

	for round := 0; len(reply.Calls) > 0; round++ {
		if round >= maxRounds {
			return "", fmt.Errorf("%w: %d", ErrTooManyRounds, round)
		}

		d.session.Append(reply.Turn())

		results := make([]llm.CallResult, 0, len(reply.Calls))
		for _, call := range reply.Calls {
			results = append(results, d.run(ctx, call, out))
		}
		d.session.Append(llm.ToolTurn(results))

		reply, err = d.model.Generate(ctx, d.session.History())
		if err != nil {
			return "", err
		}
	}

	d.session.Append(reply.Turn())

	return reply.Text, nil
}

// run executes one call and renders its outcome for the model. Failures
// never abort the loop.
func (d *Dispatcher) run(ctx context.Context, call llm.Call, out speech.Speaker) llm.CallResult {
	log.Info("Calling tool", "tool", call.Name, "args", call.Args.JSON())

	res := llm.CallResult{ID: call.ID, Name: call.Name}

	r, err := d.tools.Invoke(ctx, call.Name, call.Args)
	switch {
	case err == nil:
		metrics.ToolCalls.WithLabelValues(call.Name, "ok").Inc()
		out.Say(ctx, r.Speech)
		res.Output = r.Output

	case errors.Is(err, tool.ErrUnknownTool):
		metrics.ToolCalls.WithLabelValues("unknown", "unknown").Inc()
		log.Error("Model requested unknown tool", "tool", call.Name)
		res.Output = fmt.Sprintf("Failure: unknown tool %q.", call.Name)

	default:
		metrics.ToolCalls.WithLabelValues(call.Name, "failure").Inc()
		if te, ok := tool.AsError(err); ok {
			log.Warn("Tool failed", "tool", call.Name, "kind", te.Kind, "err", err)
			out.Say(ctx, te.Say)
			res.Output = te.Message()
		} else {
			log.Error("Tool failed", "tool", call.Name, "err", err)
			res.Output = "Failure: " + err.Error()
		}
	}

	return res
}
