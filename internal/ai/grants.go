package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/david/grantai/internal/models"
)

// MaxExtractDocuments caps how many search results go into one extraction prompt.
const MaxExtractDocuments = 8

const maxDocumentChars = 6000

const extractSystemPrompt = `You extract grant/funding opportunity data from web search results.
Return ONLY a valid JSON array with structured grant data:
[
  {
    "name": "Grant Name",
    "type": "grant|hackathon|accelerator|program",
    "organization": "Issuing Organization",
    "amount": "Funding amount or range",
    "deadline": "Application deadline if known",
    "focus": "Focus areas",
    "eligibility": "Who can apply",
    "url": "Source URL",
    "features": "Key features"
  }
]
Only include real funding opportunities. Ignore ads, news articles without grant info.`

// SourceDocument is one search or scrape result handed to the extractor.
type SourceDocument struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Markdown    string `json:"markdown,omitempty"`
}

type rawGrant struct {
	Name         looseString `json:"name"`
	Type         looseString `json:"type"`
	Organization looseString `json:"organization"`
	Amount       looseString `json:"amount"`
	Deadline     looseString `json:"deadline"`
	Focus        looseString `json:"focus"`
	Eligibility  looseString `json:"eligibility"`
	Level        looseString `json:"level"`
	URL          looseString `json:"url"`
	Features     looseString `json:"features"`
}

// Extractor turns search results into opportunities.
type Extractor struct {
	LLM Completer
}

// Configured reports whether the underlying model client has credentials.
func (e *Extractor) Configured() bool {
	return configured(e.LLM)
}

// Extract returns the opportunities the model found in docs. The returned
// entries carry no id; the caller assigns one.
func (e *Extractor) Extract(ctx context.Context, docs []SourceDocument) ([]models.Opportunity, error) {
	if len(docs) > MaxExtractDocuments {
		docs = docs[:MaxExtractDocuments]
	}
	trimmed := make([]SourceDocument, len(docs))
	for i, d := range docs {
		d.Markdown = truncate(d.Markdown, maxDocumentChars)
		trimmed[i] = d
	}

	docsJSON, err := json.MarshalIndent(trimmed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal documents: %w", err)
	}

	resp, err := e.LLM.Complete(ctx, []Message{
		{Role: "system", Content: extractSystemPrompt},
		{Role: "user", Content: "Extract grant opportunities from these search results:\n\n" + string(docsJSON)},
	})
	if err != nil {
		return nil, err
	}
	return ParseGrants(resp), nil
}

// ParseGrants validates a raw extraction reply. Entries without a name are
// dropped and unknown or missing types become grant.
func ParseGrants(resp string) []models.Opportunity {
	array, ok := ExtractJSONArray(resp)
	if !ok {
		return []models.Opportunity{}
	}
	out := make([]models.Opportunity, 0)
	for _, g := range decodeElements[rawGrant](array) {
		name := strings.TrimSpace(string(g.Name))
		if name == "" {
			continue
		}
		t, ok := models.ParseOpportunityType(string(g.Type))
		if !ok {
			t = models.TypeGrant
		}
		out = append(out, models.Opportunity{
			Name:         name,
			Type:         t,
			Organization: string(g.Organization),
			Amount:       string(g.Amount),
			Deadline:     string(g.Deadline),
			Focus:        string(g.Focus),
			Eligibility:  string(g.Eligibility),
			Level:        string(g.Level),
			URL:          string(g.URL),
			Features:     string(g.Features),
		})
	}
	return out
}

func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	cut := maxLen - 3
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
