package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "CORS_ORIGINS", "AI_BASE_URL", "AI_API_KEY", "CHAT_BASE_URL", "CHAT_API_KEY", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
	cfg := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, []string{"http://localhost:4200"}, cfg.CORSOrigins)
}

func TestLoadEnvFileAndFallbacks(t *testing.T) {
	for _, k := range []string{"PORT", "AI_API_KEY", "AI_BASE_URL", "CHAT_API_KEY", "CHAT_BASE_URL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("CORS_ORIGINS", " https://grantai.in , ,https://app.grantai.in")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("PORT=9090\nAI_API_KEY=sk-test\nAI_BASE_URL=http://llm.local/v1\n"), 0o600))

	cfg := Load(envFile)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "sk-test", cfg.ChatAPIKey)
	assert.Equal(t, "http://llm.local/v1", cfg.ChatBaseURL)
	assert.Equal(t, []string{"http://localhost:4200", "https://grantai.in", "https://app.grantai.in"}, cfg.CORSOrigins)
}
