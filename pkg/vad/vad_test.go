package vad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rate  = 16000
	frame = 320
)

func tone(level float32) []float32 {
	f := make([]float32, frame)
	for i := range f {
		if i%2 == 0 {
			f[i] = level
		} else {
			f[i] = -level
		}
	}
	return f
}

func feed(t *testing.T, s *Segmenter, frames ...[]float32) (int, error) {
	t.Helper()
	for i, f := range frames {
		done, err := s.Push(f)
		if done {
			return i + 1, err
		}
	}
	return len(frames), nil
}

func repeat(f []float32, n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = f
	}
	return out
}

func TestTimeoutBeforeSpeech(t *testing.T) {
	s := New(Config{SampleRate: rate, FrameSize: frame, Wait: 200 * time.Millisecond})

	n, err := feed(t, s, repeat(tone(0), 100)...)
	assert.ErrorIs(t, err, ErrNoSpeech)
	assert.Equal(t, 10, n)
	assert.Empty(t, s.Samples())
}

func TestPhraseEndsOnSilence(t *testing.T) {
	s := New(Config{SampleRate: rate, FrameSize: frame, Wait: time.Second, Silence: 100 * time.Millisecond})

	frames := append(repeat(tone(0), 3), repeat(tone(0.5), 5)...)
	frames = append(frames, repeat(tone(0), 20)...)

	n, err := feed(t, s, frames...)
	require.NoError(t, err)
	assert.Equal(t, 3+5+5, n)
	assert.Len(t, s.Samples(), (5+5)*frame)
}

func TestPhraseLimit(t *testing.T) {
	s := New(Config{SampleRate: rate, FrameSize: frame, Phrase: 100 * time.Millisecond})

	n, err := feed(t, s, repeat(tone(0.5), 50)...)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestThresholdFloor(t *testing.T) {
	assert.Equal(t, MinThreshold, Threshold(0.001))
	assert.InDelta(t, 0.15, Threshold(0.1), 1e-9)
	assert.InDelta(t, 0.5, RMS(tone(0.5)), 1e-6)
}
