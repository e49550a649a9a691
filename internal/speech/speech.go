// Package speech voices assistant replies.
package speech

import (
	"context"
	"strings"
	"sync"

	log "log/slog"
)

// Speaker says one line. Failures are handled inside; callers never retry.
type Speaker interface {
	Say(ctx context.Context, text string)
}

// Engine is a concrete text-to-speech backend.
type Engine interface {
	Say(ctx context.Context, text string, rate int) error
	Close() error
}

type Factory func() (Engine, error)

// Voice owns one engine. When a line fails it rebuilds the engine once and
// retries; a second failure drops the line.
type Voice struct {
	mu      sync.Mutex
	factory Factory
	engine  Engine
	rate    int
}

func NewVoice(factory Factory, rate int) *Voice {
	return &Voice{factory: factory, rate: rate}
}

func (v *Voice) Say(ctx context.Context, text string) {
	v.SayAt(ctx, text, 0)
}

// SayAt speaks with an explicit rate in words per minute; zero keeps the default.
func (v *Voice) SayAt(ctx context.Context, text string, rate int) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if rate <= 0 {
		rate = v.rate
	}

	log.Info("LUNA", "say", text)

	err := v.attempt(ctx, text, rate)
	if err == nil {
		return
	}
	log.Warn("Speech failed, resetting engine", "err", err)

	v.reset()
	if err := v.attempt(ctx, text, rate); err != nil {
		log.Error("Speech retry failed", "err", err)
		v.reset()
	}
}

func (v *Voice) attempt(ctx context.Context, text string, rate int) error {
	if v.engine == nil {
		e, err := v.factory()
		if err != nil {
			return err
		}
		v.engine = e
	}
	return v.engine.Say(ctx, text, rate)
}

func (v *Voice) reset() {
	if v.engine == nil {
		return
	}
	if err := v.engine.Close(); err != nil {
		log.Debug("Closing speech engine", "err", err)
	}
	v.engine = nil
}

func (v *Voice) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.engine == nil {
		return nil
	}
	err := v.engine.Close()
	v.engine = nil
	return err
}

// Recorder collects lines instead of voicing them.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *Recorder) Say(_ context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	r.mu.Lock()
	r.lines = append(r.lines, text)
	r.mu.Unlock()
}

func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

func (r *Recorder) Text() string {
	return strings.Join(r.Lines(), " ")
}

// Tee fans every line out to several speakers in order.
type Tee []Speaker

func (t Tee) Say(ctx context.Context, text string) {
	for _, s := range t {
		s.Say(ctx, text)
	}
}

type SpeakerFunc func(ctx context.Context, text string)

func (f SpeakerFunc) Say(ctx context.Context, text string) { f(ctx, text) }
