// Package vad splits a stream of PCM frames into one spoken phrase using an
// energy threshold.
package vad

import (
	"errors"
	"math"
	"time"
)

var ErrNoSpeech = errors.New("no speech before timeout")

const MinThreshold = 0.015

type Config struct {
	SampleRate int
	FrameSize  int
	Threshold  float64
	// Wait is how long to wait for speech to start.
	Wait time.Duration
	// Phrase caps the length of the recorded phrase.
	Phrase time.Duration
	// Silence ends the phrase once speech has started.
	Silence time.Duration
}

// Segmenter consumes frames until a phrase is complete.
type Segmenter struct {
	cfg      Config
	frameDur time.Duration
	waited   time.Duration
	spoken   time.Duration
	silent   time.Duration
	speaking bool
	out      []float32
}

func New(cfg Config) *Segmenter {
	if cfg.Threshold < MinThreshold {
		cfg.Threshold = MinThreshold
	}
	if cfg.Silence <= 0 {
		cfg.Silence = 600 * time.Millisecond
	}
	frameDur := time.Duration(cfg.FrameSize) * time.Second / time.Duration(cfg.SampleRate)
	return &Segmenter{
		cfg:      cfg,
		frameDur: frameDur,
		out:      make([]float32, 0, cfg.SampleRate*3),
	}
}

// Push feeds one frame. It reports done when the phrase is complete and
// ErrNoSpeech when the wait window closed before anyone spoke.
func (s *Segmenter) Push(frame []float32) (done bool, err error) {
	loud := RMS(frame) > s.cfg.Threshold

	if !s.speaking {
		if !loud {
			s.waited += s.frameDur
			if s.cfg.Wait > 0 && s.waited >= s.cfg.Wait {
				return true, ErrNoSpeech
			}
			return false, nil
		}
		s.speaking = true
	}

	s.out = append(s.out, frame...)
	s.spoken += s.frameDur

	if loud {
		s.silent = 0
	} else {
		s.silent += s.frameDur
		if s.silent >= s.cfg.Silence {
			return true, nil
		}
	}

	if s.cfg.Phrase > 0 && s.spoken >= s.cfg.Phrase {
		return true, nil
	}
	return false, nil
}

func (s *Segmenter) Samples() []float32 { return s.out }

func RMS(f []float32) float64 {
	if len(f) == 0 {
		return 0
	}
	var sum float64
	for _, x := range f {
		sum += float64(x * x)
	}
	return math.Sqrt(sum / float64(len(f)))
}

// Threshold derives a speech threshold from the mean ambient level.
func Threshold(ambient float64) float64 {
	return math.Max(MinThreshold, ambient*1.5)
}
