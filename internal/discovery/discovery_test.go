package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/grantai/internal/ai"
	"github.com/david/grantai/internal/models"
	"github.com/david/grantai/internal/search"
)

type fakeSearcher struct {
	results    []search.Result
	err        error
	configured bool
	queries    []string
}

func (f *fakeSearcher) Configured() bool { return f.configured }

func (f *fakeSearcher) Search(ctx context.Context, query string) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	return f.results, f.err
}

type fakeExtractor struct {
	grants []models.Opportunity
	err    error
	docs   []ai.SourceDocument
}

func (f *fakeExtractor) Extract(ctx context.Context, docs []ai.SourceDocument) ([]models.Opportunity, error) {
	f.docs = docs
	return f.grants, f.err
}

func newTestService(primary, fallback search.Searcher, ex GrantExtractor) *Service {
	s := NewService(primary, fallback, ex, nil)
	s.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	n := 0
	s.newID = func() string {
		n++
		return "scraped-" + string(rune('a'+n-1))
	}
	return s
}

func sixResults() []search.Result {
	var out []search.Result
	for _, u := range []string{"u1", "u2", "u3", "u4", "u5", "u6"} {
		out = append(out, search.Result{Title: "T " + u, URL: "https://example.in/" + u, Markdown: "body"})
	}
	return out
}

func TestDiscoverNoSearcher(t *testing.T) {
	s := newTestService(nil, nil, &fakeExtractor{})
	res, err := s.Discover(context.Background(), "x")
	require.NoError(t, err)
	assert.Empty(t, res.Grants)
	assert.NotNil(t, res.Grants)
	assert.Equal(t, "Web scraping is not available. Using cached data only.", res.Message)
}

func TestDiscoverFallsBackWhenPrimaryUnconfigured(t *testing.T) {
	primary := &fakeSearcher{configured: false}
	fallback := &fakeSearcher{configured: true, results: sixResults()[:1]}
	ex := &fakeExtractor{grants: []models.Opportunity{{Name: "Seed Fund", Type: models.TypeGrant}}}

	res, err := newTestService(primary, fallback, ex).Discover(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, primary.queries)
	assert.Equal(t, []string{DefaultQuery}, fallback.queries)
	assert.Len(t, res.Grants, 1)
}

func TestDiscoverSearchFailure(t *testing.T) {
	primary := &fakeSearcher{configured: true, err: search.ErrSearchUnavailable}
	res, err := newTestService(primary, nil, &fakeExtractor{}).Discover(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, res.Grants)
	assert.Equal(t, "Search temporarily unavailable. Try again later.", res.Message)
}

func TestDiscoverCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	primary := &fakeSearcher{configured: true, err: context.Canceled}
	_, err := newTestService(primary, nil, &fakeExtractor{}).Discover(ctx, "q")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDiscoverWithoutExtractorReturnsRawResults(t *testing.T) {
	primary := &fakeSearcher{configured: true, results: sixResults()}
	res, err := newTestService(primary, nil, nil).Discover(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Found 6 potential sources", res.Message)
	assert.Len(t, res.RawResults, 6)
	assert.Empty(t, res.Grants)
}

func TestDiscoverZeroResults(t *testing.T) {
	primary := &fakeSearcher{configured: true, results: nil}
	ex := &fakeExtractor{}
	res, err := newTestService(primary, nil, ex).Discover(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Found 0 potential sources", res.Message)
	assert.Nil(t, ex.docs, "extractor not called")
}

func TestDiscoverExtractionFailure(t *testing.T) {
	primary := &fakeSearcher{configured: true, results: sixResults()}
	ex := &fakeExtractor{err: errors.New("boom")}
	res, err := newTestService(primary, nil, ex).Discover(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "Found results but couldn't parse them", res.Message)
	require.Len(t, res.RawResults, 5)
	assert.Equal(t, "https://example.in/u1", res.RawResults[0].URL)
}

func TestDiscoverSanitizesAndTags(t *testing.T) {
	primary := &fakeSearcher{configured: true, results: sixResults()[:2]}
	ex := &fakeExtractor{grants: []models.Opportunity{
		{Name: "<b>Seed</b>   Fund<script>alert(1)</script>", Organization: "DPIIT", Type: models.TypeGrant, URL: "javascript:alert(1)"},
		{Name: "<i></i>", Type: models.TypeGrant},
		{Name: "Cyber Challenge", Type: models.TypeHackathon, URL: " https://dsci.in "},
	}}

	res, err := newTestService(primary, nil, ex).Discover(context.Background(), "cyber")
	require.NoError(t, err)
	require.Len(t, res.Grants, 2)
	assert.Equal(t, "Discovered 2 new opportunities", res.Message)
	assert.Len(t, ex.docs, 2)

	first := res.Grants[0]
	assert.Equal(t, "Seed Fund", first.Name)
	assert.Empty(t, first.URL)
	assert.Equal(t, "scraped-a", first.ID)
	assert.True(t, first.IsNew)
	require.NotNil(t, first.ScrapedAt)
	assert.Equal(t, 2026, first.ScrapedAt.Year())

	assert.Equal(t, "scraped-b", res.Grants[1].ID)
	assert.Equal(t, "https://dsci.in", res.Grants[1].URL)
}

func TestProfileQuery(t *testing.T) {
	p := models.DefaultProfile()
	assert.Equal(t, "grants for tech startups Maharashtra India", ProfileQuery(p))
}
