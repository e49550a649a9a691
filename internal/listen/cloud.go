package listen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"

	openai "github.com/openai/openai-go/v3"

	"luna/pkg/audioconv"
)

// Cloud transcribes with the OpenAI audio transcription endpoint.
type Cloud struct {
	client openai.Client
	model  openai.AudioModel
}

func NewCloud(client openai.Client) *Cloud {
	return &Cloud{client: client, model: openai.AudioModelWhisper1}
}

func (c *Cloud) Transcribe(ctx context.Context, pcm []float32) (string, error) {
	if len(pcm) == 0 {
		return "", ErrUnrecognized
	}

	wav, err := audioconv.EncodeWAV(pcm, audioconv.TargetRate)
	if err != nil {
		return "", fmt.Errorf("encode wav: %w", err)
	}

	resp, err := c.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(wav), "speech.wav", "audio/wav"),
		Model: c.model,
	})
	if err != nil {
		var apiErr *openai.Error
		var netErr net.Error
		switch {
		case errors.As(err, &apiErr) && apiErr.StatusCode == 400:
			return "", fmt.Errorf("%w: %w", ErrUnrecognized, err)
		case errors.As(err, &netErr), errors.As(err, &apiErr):
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", err
	}

	return resp.Text, nil
}
