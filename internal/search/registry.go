package search

import (
	"embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry lists the portals the fallback scraper visits.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

type FetchConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"` // Default: 30
	MaxRetries     int `yaml:"max_retries,omitempty"`
	DelayMillis    int `yaml:"delay_ms,omitempty"`
}

func (f FetchConfig) Timeout() time.Duration {
	if f.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(f.TimeoutSeconds) * time.Second
}

func (f FetchConfig) Delay() time.Duration {
	return time.Duration(f.DelayMillis) * time.Millisecond
}

type SelectorConfig struct {
	Item        string `yaml:"item,omitempty"` // CSS selector for one listing entry
	Link        string `yaml:"link,omitempty"`
	Title       string `yaml:"title,omitempty"`
	Description string `yaml:"description,omitempty"`
}

type SourceConfig struct {
	ID        string         `yaml:"id"`
	Name      string         `yaml:"name"`
	BaseURL   string         `yaml:"base_url"`
	Enabled   *bool          `yaml:"enabled,omitempty"`
	Seeds     []string       `yaml:"seed_urls"`
	Selectors SelectorConfig `yaml:"selectors,omitempty"`
	Fetch     FetchConfig    `yaml:"fetch,omitempty"`
}

// IsEnabled treats an unset flag as enabled.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// LoadRegistry reads the embedded sources.yaml. When path is non-empty the
// file at path is used instead. ${VAR} references are expanded from the
// environment.
func LoadRegistry(path string) (*Registry, error) {
	var data []byte
	var err error
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = sourcesYAML.ReadFile("config/sources.yaml")
	}
	if err != nil {
		return nil, err
	}
	return ParseRegistry(data)
}

func ParseRegistry(data []byte) (*Registry, error) {
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, fmt.Errorf("failed to parse source registry: %w", err)
	}
	for i, s := range reg.Sources {
		if s.ID == "" || len(s.Seeds) == 0 {
			return nil, fmt.Errorf("source %d: id and seed_urls are required", i)
		}
	}
	return &reg, nil
}

// Enabled returns the sources that are switched on.
func (r *Registry) Enabled() []SourceConfig {
	var out []SourceConfig
	for _, s := range r.Sources {
		if s.IsEnabled() {
			out = append(out, s)
		}
	}
	return out
}

// Source looks a source up by id.
func (r *Registry) Source(id string) (SourceConfig, bool) {
	for _, s := range r.Sources {
		if s.ID == id {
			return s, true
		}
	}
	return SourceConfig{}, false
}
