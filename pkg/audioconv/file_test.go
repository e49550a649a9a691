package audioconv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertFile(t *testing.T) {
	data, err := EncodeWAV(sine(4000, 16000, 300), 16000)
	require.NoError(t, err)

	// no extension, detected from the RIFF header
	path := filepath.Join(t.TempDir(), "clip")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	pcm, err := ConvertFileToPCM16k(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Len(t, pcm, 4000)

	_, err = ConvertFileToPCM16k(context.Background(), filepath.Join(t.TempDir(), "missing.wav"), Options{})
	assert.ErrorIs(t, err, os.ErrNotExist)
}
