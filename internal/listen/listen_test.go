package listen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luna/pkg/vad"
)

type fakeCapture struct {
	pcm []float32
	err error
}

func (f fakeCapture) Calibrate(context.Context, time.Duration) error { return nil }

func (f fakeCapture) Record(context.Context, time.Duration, time.Duration) ([]float32, error) {
	return f.pcm, f.err
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f fakeTranscriber) Transcribe(context.Context, []float32) (string, error) {
	return f.text, f.err
}

func TestMicrophoneListen(t *testing.T) {
	samples := make([]float32, 1600)

	cases := []struct {
		name    string
		capture fakeCapture
		tr      fakeTranscriber
		want    string
		err     error
	}{
		{name: "text", capture: fakeCapture{pcm: samples}, tr: fakeTranscriber{text: " Luna, Open Notepad. "}, want: "luna, open notepad"},
		{name: "silence", capture: fakeCapture{err: vad.ErrNoSpeech}, err: ErrTimeout},
		{name: "device", capture: fakeCapture{err: errors.New("no input device")}, err: ErrUnavailable},
		{name: "blank", capture: fakeCapture{pcm: samples}, tr: fakeTranscriber{text: "[BLANK_AUDIO]"}, err: ErrUnrecognized},
		{name: "recognizer down", capture: fakeCapture{pcm: samples}, tr: fakeTranscriber{err: errors.New("connection refused")}, err: ErrUnavailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMicrophone(tc.capture, tc.tr)
			got, err := m.Listen(context.Background(), CommandLimits)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "time in tokyo", Normalize("Time in Tokyo?"))
	assert.Equal(t, "hello", Normalize("(music) Hello [BLANK_AUDIO]"))
	assert.Equal(t, "", Normalize(" *coughs* "))
}
