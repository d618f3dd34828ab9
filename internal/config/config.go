// Package config reads runtime settings from the environment, loading a
// .env file first when one is present.
package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	CORSOrigins []string
	AdminSecret string
	LogLevel    string
	DataDir     string

	// OpenAI-compatible endpoint used for matching and extraction.
	AIBaseURL string
	AIAPIKey  string
	AIModel   string

	// Endpoint used by the chat relay. Falls back to the AI settings.
	ChatBaseURL string
	ChatAPIKey  string
	ChatModel   string

	FirecrawlBaseURL string
	FirecrawlAPIKey  string

	// SourcesFile overrides the embedded scrape source registry.
	SourcesFile string
}

// Load reads .env files (missing files are ignored) and then the environment.
// Variables already set in the environment win over .env values.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		_ = godotenv.Load(f)
	}

	cfg := Config{
		Port:             envOrDefault("PORT", "8081"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		CORSOrigins:      append([]string{"http://localhost:4200"}, splitCSV(os.Getenv("CORS_ORIGINS"))...),
		AdminSecret:      os.Getenv("ADMIN_SECRET"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		DataDir:          envOrDefault("DATA_DIR", defaultDataDir()),
		AIBaseURL:        os.Getenv("AI_BASE_URL"),
		AIAPIKey:         os.Getenv("AI_API_KEY"),
		AIModel:          os.Getenv("AI_MODEL"),
		ChatBaseURL:      os.Getenv("CHAT_BASE_URL"),
		ChatAPIKey:       os.Getenv("CHAT_API_KEY"),
		ChatModel:        os.Getenv("CHAT_MODEL"),
		FirecrawlBaseURL: os.Getenv("FIRECRAWL_BASE_URL"),
		FirecrawlAPIKey:  os.Getenv("FIRECRAWL_API_KEY"),
		SourcesFile:      os.Getenv("SOURCES_FILE"),
	}
	if cfg.ChatBaseURL == "" {
		cfg.ChatBaseURL = cfg.AIBaseURL
	}
	if cfg.ChatAPIKey == "" {
		cfg.ChatAPIKey = cfg.AIAPIKey
	}
	return cfg
}

func envOrDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + string(os.PathSeparator) + "grantai"
	}
	return ".grantai"
}

// splitCSV splits a comma-separated value into trimmed non-empty strings.
func splitCSV(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			result = append(result, part)
		}
	}
	return result
}
