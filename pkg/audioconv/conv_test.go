package audioconv

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n, rate int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(rate)))
	}
	return out
}

func TestEncodeWAVDecodesBackAt16k(t *testing.T) {
	src := sine(8000, 8000, 440)

	data, err := EncodeWAV(src, 8000)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data[:4]))

	pcm, err := Decode(context.Background(), bytes.NewReader(data), "upload", Options{})
	require.NoError(t, err)
	assert.Len(t, pcm, 16000)

	for i := 0; i < len(src); i += 97 {
		assert.InDelta(t, src[i], pcm[i*2], 0.001)
	}
}

func TestDecodeMaxSamples(t *testing.T) {
	data, err := EncodeWAV(sine(16000, 16000, 200), 16000)
	require.NoError(t, err)

	pcm, err := Decode(context.Background(), bytes.NewReader(data), "clip.wav", Options{MaxSamples: 100})
	require.NoError(t, err)
	assert.Len(t, pcm, 100)
}

func TestDecodeRejectsUnknown(t *testing.T) {
	_, err := Decode(context.Background(), bytes.NewReader([]byte("hello world")), "notes.txt", Options{})
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = Decode(context.Background(), bytes.NewReader(nil), "a.wav", Options{})
	assert.Error(t, err)
}

func TestCandidates(t *testing.T) {
	assert.Equal(t, []string{"wav"}, candidates("x.WAV", nil))
	assert.Equal(t, []string{"ogg-vorbis", "ogg-opus"}, candidates("voice.oga", nil))
	assert.Equal(t, []string{"mp3"}, candidates("blob", []byte("ID3\x04")))
	assert.Equal(t, []string{"ogg-vorbis", "ogg-opus"}, candidates("blob", []byte("OggS")))
	assert.Nil(t, candidates("blob", []byte("????")))
}

func TestDownmixAndResample(t *testing.T) {
	assert.Equal(t, []float32{0.5, 0}, Downmix([]float32{1, 0, 0.5, -0.5}, 2))
	assert.Equal(t, []float32{0, 0.5, 1, 1}, Resample([]float32{0, 1}, 1, 2))
	assert.Len(t, Resample(make([]float32, 48000), 48000, 16000), 16000)
}
