// Package audioconv turns uploaded audio into mono 16 kHz float PCM, the
// input format of the speech recognizers.
package audioconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const TargetRate = 16000

var ErrUnsupported = errors.New("unsupported audio format")

type Options struct {
	MaxSamples int
}

// Decoder decodes a whole stream to mono samples at its native rate.
type Decoder func(r io.ReadSeeker) (pcm []float32, sampleRate int, err error)

var (
	mu       sync.RWMutex
	decoders = map[string]Decoder{}
)

// Register adds a decoder for a container/codec name such as "ogg-opus".
func Register(name string, d Decoder) {
	mu.Lock()
	decoders[name] = d
	mu.Unlock()
}

func decoder(name string) (Decoder, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := decoders[name]
	return d, ok
}

func init() {
	Register("wav", decodeWAV)
	Register("mp3", decodeMP3)
	Register("ogg-vorbis", decodeOggVorbis)
}

// candidates lists decoder names to try for a file name and header.
func candidates(name string, magic []byte) []string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		return []string{"wav"}
	case ".mp3":
		return []string{"mp3"}
	case ".ogg", ".oga", ".opus":
		return []string{"ogg-vorbis", "ogg-opus"}
	}

	switch {
	case bytes.HasPrefix(magic, []byte("RIFF")):
		return []string{"wav"}
	case bytes.HasPrefix(magic, []byte("OggS")):
		return []string{"ogg-vorbis", "ogg-opus"}
	case bytes.HasPrefix(magic, []byte("ID3")), len(magic) >= 2 && magic[0] == 0xFF && magic[1]&0xE0 == 0xE0:
		return []string{"mp3"}
	}
	return nil
}

// Decode reads r fully and converts it. name is only used as a format hint.
func Decode(_ context.Context, r io.Reader, name string, opt Options) ([]float32, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty audio")
	}

	names := candidates(name, data[:min(4, len(data))])
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, name)
	}

	var errs []error
	for _, n := range names {
		dec, ok := decoder(n)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: no decoder registered", n))
			continue
		}

		pcm, rate, err := dec(bytes.NewReader(data))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n, err))
			continue
		}

		pcm = Resample(pcm, rate, TargetRate)
		if opt.MaxSamples > 0 && len(pcm) > opt.MaxSamples {
			pcm = pcm[:opt.MaxSamples]
		}
		return pcm, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrUnsupported, errors.Join(errs...))
}

func ConvertFileToPCM16k(ctx context.Context, path string, opt Options) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(ctx, f, path, opt)
}
