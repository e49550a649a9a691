package assistant

import (
	"context"
	"errors"
	"strings"
	"time"

	log "log/slog"

	"luna/internal/dispatch"
	"luna/internal/listen"
	"luna/internal/metrics"
	"luna/internal/speech"
	"luna/pkg/protocol"
)

const (
	Greeting      = "Luna is online. Say the wake word to begin."
	Prompt        = "Yes? How can I help?"
	Listening     = "Listening..."
	NotUnderstood = "Sorry, I did not understand that."
	ServiceDown   = "Sorry, my speech service is down."
)

type Chime interface {
	Play(ctx context.Context) error
}

// Ducker lowers other audio while the microphone is open.
type Ducker interface {
	Duck(ctx context.Context) error
	Restore(ctx context.Context) error
}

type Calibrator interface {
	Calibrate(ctx context.Context, d time.Duration) error
}

// Loop configures the wake-word loop. An empty WakeWord leaves only
// push-to-talk triggers.
type Loop struct {
	Listener listen.Listener
	Voice    speech.Speaker
	WakeWord string
	Chime    Chime
	Ducker   Ducker

	// Calibration is the ambient noise sample taken at startup, and
	// TriggerCalibration the shorter one before each push-to-talk cycle.
	Calibration        time.Duration
	TriggerCalibration time.Duration
	// Retry is the pause after the speech service fails.
	Retry time.Duration
}

func (l *Loop) defaults() {
	if l.Calibration == 0 {
		l.Calibration = time.Second
	}
	if l.TriggerCalibration == 0 {
		l.TriggerCalibration = 800 * time.Millisecond
	}
	if l.Retry == 0 {
		l.Retry = 5 * time.Second
	}
	l.WakeWord = strings.ToLower(strings.TrimSpace(l.WakeWord))
}

type state string

const (
	idle   state = "idle"
	active state = "active"
)

// Run listens until ctx ends or the user says goodbye, in which case it
// returns dispatch.ErrFarewell.
func (a *Assistant) Run(ctx context.Context) error {
	if a.loop.Listener == nil {
		return errors.New("assistant: no listener")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-a.bye:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := a.run(ctx)
	select {
	case <-a.bye:
		return dispatch.ErrFarewell
	default:
		return err
	}
}

func (a *Assistant) run(ctx context.Context) error {
	a.Say(ctx, Greeting)
	a.calibrate(ctx, a.loop.Calibration)

	if a.loop.WakeWord == "" {
		log.Info("No wake word, waiting for triggers")
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		select {
		case <-a.trigger:
			if err := a.cycle(ctx, Listening, true); err != nil {
				return err
			}
			continue
		default:
		}

		if a.loop.WakeWord == "" {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-a.trigger:
				if err := a.cycle(ctx, Listening, true); err != nil {
					return err
				}
			}
			continue
		}

		a.state(idle)
		heard, err := a.listen(ctx, idle, listen.IdleLimits)
		switch {
		case err == nil:
			if strings.Contains(heard, a.loop.WakeWord) {
				if err := a.cycle(ctx, Prompt, false); err != nil {
					return err
				}
			}
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, listen.ErrUnavailable):
			log.Error("Could not reach speech service", "err", err)
			if err := sleep(ctx, a.loop.Retry); err != nil {
				return err
			}
		}
	}
}

// cycle is one Active pass: prompt, listen for a command, resolve it.
func (a *Assistant) cycle(ctx context.Context, prompt string, triggered bool) error {
	a.state(active)
	a.Say(ctx, prompt)
	if triggered {
		a.calibrate(ctx, a.loop.TriggerCalibration)
	}
	if a.loop.Chime != nil {
		if err := a.loop.Chime.Play(ctx); err != nil {
			log.Warn("Failed to play chime", "err", err)
		}
	}

	cmd, err := a.listenDucked(ctx)
	switch {
	case err == nil:
		if _, err := a.Handle(ctx, cmd, a.loop.Voice); err != nil {
			return err
		}
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, listen.ErrTimeout):
		log.Info("No command heard")
	case errors.Is(err, listen.ErrUnrecognized):
		a.Say(ctx, NotUnderstood)
	case errors.Is(err, listen.ErrUnavailable):
		log.Error("Could not reach speech service", "err", err)
		a.Say(ctx, ServiceDown)
		return sleep(ctx, a.loop.Retry)
	default:
		log.Error("Listen failed", "err", err)
	}
	return nil
}

func (a *Assistant) listenDucked(ctx context.Context) (string, error) {
	if d := a.loop.Ducker; d != nil {
		if err := d.Duck(ctx); err != nil {
			log.Warn("Failed to duck audio", "err", err)
		}
		defer func() {
			if err := d.Restore(context.WithoutCancel(ctx)); err != nil {
				log.Warn("Failed to restore audio", "err", err)
			}
		}()
	}
	return a.listen(ctx, active, listen.CommandLimits)
}

func (a *Assistant) listen(ctx context.Context, st state, lim listen.Limits) (string, error) {
	text, err := a.loop.Listener.Listen(ctx, lim)
	metrics.ListenOutcomes.WithLabelValues(string(st), outcome(ctx, err)).Inc()
	return text, err
}

func outcome(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "heard"
	case ctx.Err() != nil:
		return "canceled"
	case errors.Is(err, listen.ErrTimeout):
		return "timeout"
	case errors.Is(err, listen.ErrUnrecognized):
		return "unrecognized"
	case errors.Is(err, listen.ErrUnavailable):
		return "unavailable"
	}
	return "error"
}

func (a *Assistant) calibrate(ctx context.Context, d time.Duration) {
	c, ok := a.loop.Listener.(Calibrator)
	if !ok {
		return
	}
	if err := c.Calibrate(ctx, d); err != nil && ctx.Err() == nil {
		log.Warn("Microphone calibration failed", "err", err)
	}
}

func (a *Assistant) state(st state) {
	log.Debug("Loop state", "state", st)
	a.events.Publish(protocol.KindState, string(st), "")
}
