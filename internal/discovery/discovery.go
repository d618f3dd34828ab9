// Package discovery finds new funding opportunities on the web.
package discovery

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/david/grantai/internal/ai"
	"github.com/david/grantai/internal/models"
	"github.com/david/grantai/internal/search"
)

// DefaultQuery is used when neither the caller nor the profile supplies one.
const DefaultQuery = "government grants for startups India 2025 2026 MSME technology"

// SuggestedQueries are offered next to the discovery search box.
var SuggestedQueries = []string{
	"MSME grants Maharashtra 2025",
	"Startup India seed fund scheme",
	"Technology startup grants India",
	"Construction industry funding",
	"AI cybersecurity grants",
}

const (
	msgUnavailable = "Web scraping is not available. Using cached data only."
	msgSearchDown  = "Search temporarily unavailable. Try again later."
	msgUnparsed    = "Found results but couldn't parse them"
)

// maxRawResults caps the raw results returned when extraction fails.
const maxRawResults = 5

// RawResult is a search hit returned when no structured data could be extracted.
type RawResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
}

// Response mirrors what the discovery endpoint returns.
type Response struct {
	Grants     []models.Opportunity `json:"grants"`
	RawResults []RawResult          `json:"rawResults,omitempty"`
	Message    string               `json:"message,omitempty"`
}

// GrantExtractor turns search results into opportunities.
type GrantExtractor interface {
	Extract(ctx context.Context, docs []ai.SourceDocument) ([]models.Opportunity, error)
}

// Service runs a web search and extracts opportunities from the hits.
type Service struct {
	// Primary is the hosted search API. Fallback, if set, is used when
	// Primary is nil or not configured.
	Primary   search.Searcher
	Fallback  search.Searcher
	Extractor GrantExtractor
	Log       *zap.SugaredLogger

	policy *bluemonday.Policy
	now    func() time.Time
	newID  func() string
}

func NewService(primary, fallback search.Searcher, extractor GrantExtractor, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{
		Primary:   primary,
		Fallback:  fallback,
		Extractor: extractor,
		Log:       log,
		policy:    bluemonday.StrictPolicy(),
		now:       time.Now,
		newID:     func() string { return "scraped-" + uuid.NewString() },
	}
}

type configurable interface {
	Configured() bool
}

func usable(s search.Searcher) bool {
	if s == nil {
		return false
	}
	if c, ok := s.(configurable); ok {
		return c.Configured()
	}
	return true
}

func (s *Service) searcher() search.Searcher {
	if usable(s.Primary) {
		return s.Primary
	}
	if usable(s.Fallback) {
		return s.Fallback
	}
	return nil
}

// Discover searches for query and extracts opportunities. Search outages
// and extraction failures degrade to an empty grant list with an
// explanatory message; only context cancellation is returned as an error.
func (s *Service) Discover(ctx context.Context, query string) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		query = DefaultQuery
	}

	searcher := s.searcher()
	if searcher == nil {
		return &Response{Grants: []models.Opportunity{}, Message: msgUnavailable}, nil
	}

	s.Log.Infof("[Discovery] searching for grants with query: %s", query)
	results, err := searcher.Search(ctx, query)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.Log.Errorf("[Discovery] search failed: %v", err)
		return &Response{Grants: []models.Opportunity{}, Message: msgSearchDown}, nil
	}
	s.Log.Infof("[Discovery] found %d search results", len(results))

	if len(results) == 0 || !usableExtractor(s.Extractor) {
		return &Response{
			Grants:     []models.Opportunity{},
			RawResults: rawResults(results, len(results)),
			Message:    fmt.Sprintf("Found %d potential sources", len(results)),
		}, nil
	}

	docs := make([]ai.SourceDocument, len(results))
	for i, r := range results {
		docs[i] = ai.SourceDocument{Title: r.Title, URL: r.URL, Description: r.Description, Markdown: r.Markdown}
	}
	grants, err := s.Extractor.Extract(ctx, docs)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.Log.Errorf("[Discovery] extraction failed: %v", err)
		return &Response{
			Grants:     []models.Opportunity{},
			RawResults: rawResults(results, maxRawResults),
			Message:    msgUnparsed,
		}, nil
	}

	now := s.now().UTC()
	out := make([]models.Opportunity, 0, len(grants))
	for _, g := range grants {
		g = s.sanitize(g)
		if g.Name == "" {
			continue
		}
		g.ID = s.newID()
		g.IsNew = true
		scrapedAt := now
		g.ScrapedAt = &scrapedAt
		out = append(out, g)
	}
	s.Log.Infof("[Discovery] extracted %d grants", len(out))

	return &Response{
		Grants:  out,
		Message: fmt.Sprintf("Discovered %d new opportunities", len(out)),
	}, nil
}

func usableExtractor(e GrantExtractor) bool {
	if e == nil {
		return false
	}
	if c, ok := e.(configurable); ok {
		return c.Configured()
	}
	return true
}

// sanitize strips markup from model-produced fields and drops non-http URLs.
func (s *Service) sanitize(o models.Opportunity) models.Opportunity {
	clean := func(v string) string {
		return strings.Join(strings.Fields(html.UnescapeString(s.policy.Sanitize(v))), " ")
	}
	o.Name = clean(o.Name)
	o.Organization = clean(o.Organization)
	o.Amount = clean(o.Amount)
	o.Deadline = clean(o.Deadline)
	o.Focus = clean(o.Focus)
	o.Eligibility = clean(o.Eligibility)
	o.Level = clean(o.Level)
	o.Features = clean(o.Features)
	o.URL = strings.TrimSpace(o.URL)
	if !strings.HasPrefix(o.URL, "https://") && !strings.HasPrefix(o.URL, "http://") {
		o.URL = ""
	}
	return o
}

func rawResults(results []search.Result, limit int) []RawResult {
	if limit > len(results) {
		limit = len(results)
	}
	out := make([]RawResult, 0, limit)
	for _, r := range results[:limit] {
		out = append(out, RawResult{Title: r.Title, URL: r.URL, Description: r.Description})
	}
	return out
}

// ProfileQuery builds the default discovery query for a profile.
func ProfileQuery(p models.UserProfile) string {
	return fmt.Sprintf("grants for %s startups %s India", p.BusinessType, p.Location.State)
}
