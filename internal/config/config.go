package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingKey = errors.New("missing api key")

type Config struct {
	Model   ModelConfig
	Voice   VoiceConfig
	Desktop DesktopConfig
	SMTP    SMTPConfig
	Weather WeatherConfig
	Server  ServerConfig
}

type ModelConfig struct {
	Provider     string `envconfig:"LUNA_PROVIDER" default:"gemini"`
	Name         string `envconfig:"LUNA_MODEL"`
	GoogleAPIKey string `envconfig:"GOOGLE_API_KEY"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	RPM          int    `envconfig:"LUNA_MODEL_RPM" default:"30"`
}

// APIKey returns the key of the selected provider.
func (c ModelConfig) APIKey() string {
	if c.Provider == "openai" {
		return c.OpenAIAPIKey
	}
	return c.GoogleAPIKey
}

func (c ModelConfig) KeyName() string {
	if c.Provider == "openai" {
		return "OPENAI_API_KEY"
	}
	return "GOOGLE_API_KEY"
}

type VoiceConfig struct {
	WakeWord     string `envconfig:"LUNA_WAKE_WORD" default:"luna"`
	STT          string `envconfig:"LUNA_STT" default:"whisper"`
	WhisperModel string `envconfig:"LUNA_WHISPER_MODEL" default:"third_party/whisper.cpp/models/ggml-base.en.bin"`
	TTS          string `envconfig:"LUNA_TTS" default:"espeak"`
	Voice        string `envconfig:"LUNA_VOICE" default:"en"`
	Rate         int    `envconfig:"LUNA_VOICE_RATE" default:"180"`
	Chime        string `envconfig:"LUNA_CHIME" default:"beep.mp3"`
}

type DesktopConfig struct {
	Dir string `envconfig:"LUNA_DESKTOP_DIR"`
}

type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	User     string `envconfig:"SMTP_USER"`
	Pass     string `envconfig:"SMTP_PASS"`
	StartTLS bool   `envconfig:"SMTP_STARTTLS" default:"true"`
}

// Configured reports whether SMTP delivery can be attempted.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.User != "" && c.Pass != ""
}

type WeatherConfig struct {
	APIKey  string        `envconfig:"OPENWEATHER_API_KEY"`
	BaseURL string        `envconfig:"OPENWEATHER_URL" default:"https://api.openweathermap.org"`
	Timeout time.Duration `envconfig:"OPENWEATHER_TIMEOUT" default:"5s"`
}

type ServerConfig struct {
	APIKey string `envconfig:"LUNA_HTTP_API_KEY"`
	Socket string `envconfig:"LUNA_SOCKET" default:"/tmp/luna.sock"`
}

// Load reads the optional env file and then the process environment.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}

	cfg.Model.Provider = strings.ToLower(strings.TrimSpace(cfg.Model.Provider))
	cfg.Voice.WakeWord = strings.ToLower(strings.TrimSpace(cfg.Voice.WakeWord))

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown provider %q", c.Model.Provider)
	}
	if c.Model.APIKey() == "" {
		return fmt.Errorf("%s not set: %w", c.Model.KeyName(), ErrMissingKey)
	}

	switch c.Voice.STT {
	case "whisper", "openai":
	default:
		return fmt.Errorf("unknown speech recognizer %q", c.Voice.STT)
	}
	switch c.Voice.TTS {
	case "espeak", "openai":
	default:
		return fmt.Errorf("unknown speech engine %q", c.Voice.TTS)
	}
	if (c.Voice.STT == "openai" || c.Voice.TTS == "openai") && c.Model.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY not set: %w", ErrMissingKey)
	}

	return nil
}
