// Package opus registers an Ogg/Opus decoder with audioconv. It needs libopus.
package opus

import (
	"io"

	popus "github.com/pekim/opus"

	"luna/pkg/audioconv"
)

const rate = 48000

func init() {
	audioconv.Register("ogg-opus", decode)
}

func decode(r io.ReadSeeker) ([]float32, int, error) {
	dec, err := popus.NewDecoder(r)
	if err != nil {
		return nil, 0, err
	}
	defer dec.Destroy()

	ch := max(1, dec.ChannelCount())
	buf := make([]int16, rate*ch/2)

	var pcm []float32
	for {
		n, err := dec.Read(buf)
		if n > 0 {
			pcm = append(pcm, audioconv.Int16ToFloat(buf[:n*ch])...)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
	}

	return audioconv.Downmix(pcm, ch), rate, nil
}
