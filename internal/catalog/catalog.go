package catalog

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/david/grantai/internal/models"
)

//go:embed data/opportunities.yaml
var catalogFS embed.FS

type file struct {
	Opportunities []models.Opportunity `yaml:"opportunities"`
}

var (
	loadOnce sync.Once
	loaded   []models.Opportunity
	loadErr  error
)

// Parse decodes a catalog document and checks every entry.
func Parse(data []byte) ([]models.Opportunity, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	seen := make(map[string]bool, len(f.Opportunities))
	for i, o := range f.Opportunities {
		if o.ID == "" || o.Name == "" {
			return nil, fmt.Errorf("catalog entry %d: id and name are required", i)
		}
		if seen[o.ID] {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %q", i, o.ID)
		}
		seen[o.ID] = true
		t, ok := models.ParseOpportunityType(string(o.Type))
		if !ok {
			return nil, fmt.Errorf("catalog entry %q: unknown type %q", o.ID, o.Type)
		}
		f.Opportunities[i].Type = t
	}
	return f.Opportunities, nil
}

// All returns the built-in catalog. Callers receive a fresh copy.
func All() ([]models.Opportunity, error) {
	loadOnce.Do(func() {
		data, err := catalogFS.ReadFile("data/opportunities.yaml")
		if err != nil {
			loadErr = err
			return
		}
		loaded, loadErr = Parse(data)
	})
	if loadErr != nil {
		return nil, loadErr
	}
	return append([]models.Opportunity(nil), loaded...), nil
}

// MustAll is All for program start-up, where a broken embedded catalog is fatal.
func MustAll() []models.Opportunity {
	opps, err := All()
	if err != nil {
		panic(err)
	}
	return opps
}

// Find returns the opportunity with the given id from opps.
func Find(opps []models.Opportunity, id string) (models.Opportunity, bool) {
	for _, o := range opps {
		if o.ID == id {
			return o, true
		}
	}
	return models.Opportunity{}, false
}
