// Package listen turns microphone audio into lowercased command text.
package listen

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	log "log/slog"

	"luna/pkg/vad"
)

var (
	// ErrTimeout means nobody spoke within the wait window.
	ErrTimeout = errors.New("listen timeout")
	// ErrUnrecognized means speech was heard but produced no text.
	ErrUnrecognized = errors.New("speech not recognized")
	// ErrUnavailable means the recognizer or device could not be reached.
	ErrUnavailable = errors.New("speech service unavailable")
)

// Limits bounds one listen: Wait for speech to begin, Phrase for its length.
type Limits struct {
	Wait   time.Duration
	Phrase time.Duration
}

var (
	IdleLimits    = Limits{Wait: 10 * time.Second, Phrase: 7 * time.Second}
	CommandLimits = Limits{Wait: 10 * time.Second, Phrase: 10 * time.Second}
)

type Listener interface {
	Listen(ctx context.Context, lim Limits) (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm []float32) (string, error)
}

// Capture is the microphone side of a Listener.
type Capture interface {
	Calibrate(ctx context.Context, d time.Duration) error
	Record(ctx context.Context, wait, phrase time.Duration) ([]float32, error)
}

// Microphone records one phrase and transcribes it.
type Microphone struct {
	capture Capture
	tr      Transcriber
}

func NewMicrophone(c Capture, tr Transcriber) *Microphone {
	return &Microphone{capture: c, tr: tr}
}

func (m *Microphone) Calibrate(ctx context.Context, d time.Duration) error {
	return m.capture.Calibrate(ctx, d)
}

func (m *Microphone) Listen(ctx context.Context, lim Limits) (string, error) {
	pcm, err := m.capture.Record(ctx, lim.Wait, lim.Phrase)
	switch {
	case errors.Is(err, vad.ErrNoSpeech):
		return "", ErrTimeout
	case ctx.Err() != nil:
		return "", ctx.Err()
	case err != nil:
		return "", fmt.Errorf("%w: record: %w", ErrUnavailable, err)
	}

	log.Debug("Recorded", "samples", len(pcm))

	text, err := m.tr.Transcribe(ctx, pcm)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if errors.Is(err, ErrUnrecognized) || errors.Is(err, ErrUnavailable) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	text = Normalize(text)
	if text == "" {
		return "", ErrUnrecognized
	}

	log.Info("Heard", "text", text)

	return text, nil
}

// non-speech markers such as [BLANK_AUDIO] or (music)
var markerRe = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)|\*[^*]*\*`)

// Normalize lowercases a transcript and strips recognizer markers and
// trailing punctuation.
func Normalize(text string) string {
	text = markerRe.ReplaceAllString(text, " ")
	text = strings.Join(strings.Fields(text), " ")
	text = strings.TrimRight(text, ".!?,;")
	return strings.ToLower(strings.TrimSpace(text))
}
