// Package notify tells the user the microphone is open.
package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"luna/internal/audio"
)

// Chime plays the activation sound.
type Chime struct {
	Path string
}

func (c Chime) Play(ctx context.Context) error {
	f, err := os.Open(c.Path)
	if err != nil {
		return fmt.Errorf("open chime: %w", err)
	}
	return audio.PlayMP3(ctx, f)
}

// Desktop shows a transient desktop notification through notify-send.
func Desktop(ctx context.Context, summary, body string) error {
	path, err := exec.LookPath("notify-send")
	if err != nil {
		return err
	}
	return exec.CommandContext(ctx, path, "-a", "Luna", "-t", "2000", summary, body).Run()
}

// Cue is the listening signal: an optional chime and desktop notification.
type Cue struct {
	Chime  *Chime
	Notify bool
}

func (c Cue) Play(ctx context.Context) error {
	var errs []error
	if c.Notify {
		if err := Desktop(ctx, "Luna", "Listening..."); err != nil {
			errs = append(errs, fmt.Errorf("notify: %w", err))
		}
	}
	if c.Chime != nil {
		if err := c.Chime.Play(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
