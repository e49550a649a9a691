package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "g-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Model.Provider)
	assert.Equal(t, "luna", cfg.Voice.WakeWord)
	assert.Equal(t, 180, cfg.Voice.Rate)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.True(t, cfg.SMTP.StartTLS)
	assert.Equal(t, 5*time.Second, cfg.Weather.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(
		"LUNA_PROVIDER=OpenAI\nOPENAI_API_KEY=o-key\nSMTP_HOST=smtp.example.com\nSMTP_STARTTLS=0\nLUNA_WAKE_WORD= Nova \n",
	), 0o644))
	t.Cleanup(func() {
		for _, k := range []string{"LUNA_PROVIDER", "OPENAI_API_KEY", "SMTP_HOST", "SMTP_STARTTLS", "LUNA_WAKE_WORD"} {
			os.Unsetenv(k)
		}
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, "o-key", cfg.Model.APIKey())
	assert.Equal(t, "smtp.example.com", cfg.SMTP.Host)
	assert.False(t, cfg.SMTP.StartTLS)
	assert.False(t, cfg.SMTP.Configured())
	assert.Equal(t, "nova", cfg.Voice.WakeWord)
}

func TestValidateMissingKey(t *testing.T) {
	cfg := &Config{
		Model: ModelConfig{Provider: "gemini"},
		Voice: VoiceConfig{STT: "whisper", TTS: "espeak"},
	}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingKey)

	cfg.Model.GoogleAPIKey = "k"
	assert.NoError(t, cfg.Validate())

	cfg.Voice.TTS = "openai"
	assert.ErrorIs(t, cfg.Validate(), ErrMissingKey)
}
