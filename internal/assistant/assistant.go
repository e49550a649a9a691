// Package assistant routes commands and runs the wake-word loop.
package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	log "log/slog"

	"luna/internal/dispatch"
	"luna/internal/metrics"
	"luna/internal/speech"
	"luna/pkg/protocol"
)

type Route string

const (
	RouteEmpty    Route = "empty"
	RouteLocal    Route = "local"
	RouteModel    Route = "model"
	RouteFarewell Route = "farewell"
)

// Outcome describes how one command was resolved.
type Outcome struct {
	Route Route  `json:"route"`
	Reply string `json:"reply"`
}

// Local answers a command without the model.
type Local interface {
	Handle(ctx context.Context, cmd string, out speech.Speaker) bool
}

// Remote answers a command through the model.
type Remote interface {
	Process(ctx context.Context, text string, out speech.Speaker) (string, error)
}

type Resetter interface {
	Reset()
}

type Publisher interface {
	Publish(kind protocol.Kind, text, route string)
}

type nopPublisher struct{}

func (nopPublisher) Publish(protocol.Kind, string, string) {}

// Assistant resolves one command at a time, whichever shell it came from.
type Assistant struct {
	mu      sync.Mutex
	local   Local
	remote  Remote
	session Resetter
	events  Publisher

	loop Loop

	trigger chan struct{}
	bye     chan struct{}
	byeOnce sync.Once
}

type Options struct {
	Local   Local
	Remote  Remote
	Session Resetter
	Events  Publisher
	Loop    Loop
}

func New(opt Options) *Assistant {
	a := &Assistant{
		local:   opt.Local,
		remote:  opt.Remote,
		session: opt.Session,
		events:  opt.Events,
		loop:    opt.Loop,
		trigger: make(chan struct{}, 1),
		bye:     make(chan struct{}),
	}
	if a.events == nil {
		a.events = nopPublisher{}
	}
	a.loop.defaults()
	return a
}

// Handle routes one command: local intents first, then the model. Every
// spoken line goes to out. It returns dispatch.ErrFarewell when the user
// said goodbye; the assistant is finished after that.
func (a *Assistant) Handle(ctx context.Context, text string, out speech.Speaker) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		metrics.Commands.WithLabelValues(string(RouteEmpty)).Inc()
		return Outcome{Route: RouteEmpty}, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	log.Info("USER", "said", text)
	a.events.Publish(protocol.KindHeard, text, "")

	if out == nil {
		out = speech.Tee{}
	}
	rec := &speech.Recorder{}
	sp := speech.Tee{out, rec, speech.SpeakerFunc(func(_ context.Context, line string) {
		a.events.Publish(protocol.KindSay, line, "")
	})}

	var (
		res Outcome
		err error
	)
	if a.local.Handle(ctx, text, sp) {
		res = Outcome{Route: RouteLocal, Reply: rec.Text()}
	} else {
		var reply string
		reply, err = a.remote.Process(ctx, text, sp)
		res = Outcome{Route: RouteModel, Reply: reply}
		if errors.Is(err, dispatch.ErrFarewell) {
			res.Route = RouteFarewell
			a.byeOnce.Do(func() { close(a.bye) })
		}
	}

	metrics.Commands.WithLabelValues(string(res.Route)).Inc()
	if err != nil && res.Route != RouteFarewell {
		a.events.Publish(protocol.KindError, err.Error(), string(res.Route))
		return res, err
	}

	a.events.Publish(protocol.KindReply, res.Reply, string(res.Route))
	return res, err
}

// Reset clears the chat history between commands.
func (a *Assistant) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.session.Reset()
	log.Info("Chat history cleared")
	a.events.Publish(protocol.KindState, "reset", "")
}

// Trigger asks the loop for one push-to-talk cycle. It reports false when a
// trigger is already pending.
func (a *Assistant) Trigger() bool {
	select {
	case a.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Done is closed once the user has said goodbye.
func (a *Assistant) Done() <-chan struct{} { return a.bye }

// Say voices a line outside of any command.
func (a *Assistant) Say(ctx context.Context, text string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.say(ctx, text)
}

func (a *Assistant) say(ctx context.Context, text string) {
	if a.loop.Voice == nil {
		return
	}
	a.loop.Voice.Say(ctx, text)
	a.events.Publish(protocol.KindSay, text, "")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
