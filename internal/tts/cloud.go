package tts

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go/v3"

	"luna/internal/audio"
	"luna/internal/speech"
)

const baseRate = 180.0

// Cloud synthesizes speech with the OpenAI audio API and plays the mp3.
type Cloud struct {
	client openai.Client
	voice  openai.AudioSpeechNewParamsVoice
}

func NewCloud(client openai.Client, voice string) speech.Factory {
	return func() (speech.Engine, error) {
		return &Cloud{client: client, voice: openai.AudioSpeechNewParamsVoice(voice)}, nil
	}
}

// speed maps words per minute onto the API's 0.25-4.0 range.
func speed(rate int) float64 {
	if rate <= 0 {
		return 1
	}
	return min(4, max(0.25, float64(rate)/baseRate))
}

func (c *Cloud) Say(ctx context.Context, text string, rate int) error {
	resp, err := c.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModelTTS1,
		Voice:          c.voice,
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
		Speed:          openai.Float(speed(rate)),
	})
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	return audio.PlayMP3(ctx, resp.Body)
}

func (c *Cloud) Close() error { return nil }
