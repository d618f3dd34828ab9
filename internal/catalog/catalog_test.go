package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/grantai/internal/models"
)

func TestAllEmbeddedCatalog(t *testing.T) {
	opps, err := All()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(opps), 20, "matching sends the first 20 entries")

	seen := map[string]bool{}
	for _, o := range opps {
		assert.False(t, seen[o.ID], "duplicate id %s", o.ID)
		seen[o.ID] = true
		_, ok := models.ParseOpportunityType(string(o.Type))
		assert.True(t, ok, "bad type for %s", o.ID)
		assert.False(t, o.IsNew)
	}
}

func TestAllReturnsCopy(t *testing.T) {
	a, err := All()
	require.NoError(t, err)
	a[0].Name = "mutated"

	b, err := All()
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", b[0].Name)
}

func TestParseRejectsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"duplicate id", "opportunities:\n  - {id: a, name: A, type: grant}\n  - {id: a, name: B, type: grant}\n"},
		{"unknown type", "opportunities:\n  - {id: a, name: A, type: loan}\n"},
		{"missing name", "opportunities:\n  - {id: a, type: grant}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseNormalisesTypeCase(t *testing.T) {
	opps, err := Parse([]byte("opportunities:\n  - {id: a, name: A, type: Hackathon}\n"))
	require.NoError(t, err)
	assert.Equal(t, models.TypeHackathon, opps[0].Type)

	found, ok := Find(opps, "a")
	assert.True(t, ok)
	assert.Equal(t, "A", found.Name)
	_, ok = Find(opps, "zzz")
	assert.False(t, ok)
}
