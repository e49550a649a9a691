package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "log/slog"

	"github.com/gordonklaus/portaudio"

	"luna/pkg/vad"
)

const (
	SampleRate = 16000
	frameSize  = 320 // 20ms
)

// Recorder captures mono 16 kHz speech from the default input device.
type Recorder struct {
	mu        sync.Mutex
	threshold float64
}

func NewRecorder() *Recorder { return &Recorder{threshold: vad.MinThreshold} }

func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

func (r *Recorder) Close() {
	portaudio.Terminate()
}

type stream struct {
	s   *portaudio.Stream
	buf []float32
}

func openStream() (*stream, error) {
	buf := make([]float32, frameSize)
	s, err := portaudio.OpenDefaultStream(1, 0, SampleRate, len(buf), buf)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	if err := s.Start(); err != nil {
		s.Close()
		return nil, fmt.Errorf("start input: %w", err)
	}
	return &stream{s: s, buf: buf}, nil
}

func (st *stream) close() {
	st.s.Stop()
	st.s.Close()
}

// Calibrate listens to the room for d and raises the speech threshold above
// the ambient level.
func (r *Recorder) Calibrate(ctx context.Context, d time.Duration) error {
	st, err := openStream()
	if err != nil {
		return err
	}
	defer st.close()

	frames := int(d / (20 * time.Millisecond))
	if frames < 1 {
		frames = 1
	}

	var sum float64
	for i := 0; i < frames; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := st.s.Read(); err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		sum += vad.RMS(st.buf)
	}

	threshold := vad.Threshold(sum / float64(frames))

	r.mu.Lock()
	r.threshold = threshold
	r.mu.Unlock()

	log.Debug("Calibrated microphone", "threshold", threshold)

	return nil
}

// Record waits up to wait for speech to start and returns one phrase of at
// most phrase length. It returns vad.ErrNoSpeech when nobody spoke.
func (r *Recorder) Record(ctx context.Context, wait, phrase time.Duration) ([]float32, error) {
	r.mu.Lock()
	threshold := r.threshold
	r.mu.Unlock()

	seg := vad.New(vad.Config{
		SampleRate: SampleRate,
		FrameSize:  frameSize,
		Threshold:  threshold,
		Wait:       wait,
		Phrase:     phrase,
	})

	st, err := openStream()
	if err != nil {
		return nil, err
	}
	defer st.close()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := st.s.Read(); err != nil {
			return nil, fmt.Errorf("read input: %w", err)
		}

		done, err := seg.Push(st.buf)
		if err != nil {
			return nil, err
		}
		if done {
			return seg.Samples(), nil
		}
	}
}
