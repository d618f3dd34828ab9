package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Result is one web page returned by a search or scrape.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Markdown    string `json:"markdown,omitempty"`
}

// Searcher finds pages for a free-text query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Result, error)
}

var ErrSearchUnavailable = errors.New("web search unavailable")

// FirecrawlClient calls the Firecrawl search API.
type FirecrawlClient struct {
	BaseURL    string
	APIKey     string
	Limit      int
	Lang       string
	Country    string
	HTTPClient *http.Client
}

func NewFirecrawlClient(baseURL, apiKey string) *FirecrawlClient {
	if baseURL == "" {
		baseURL = "https://api.firecrawl.dev"
	}
	return &FirecrawlClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Limit:      10,
		Lang:       "en",
		Country:    "IN",
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *FirecrawlClient) Configured() bool {
	return c != nil && c.APIKey != ""
}

type scrapeOptions struct {
	Formats []string `json:"formats"`
}

type firecrawlSearchRequest struct {
	Query         string        `json:"query"`
	Limit         int           `json:"limit"`
	Lang          string        `json:"lang,omitempty"`
	Country       string        `json:"country,omitempty"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type firecrawlSearchResponse struct {
	Success bool     `json:"success"`
	Data    []Result `json:"data"`
	Error   string   `json:"error,omitempty"`
}

func (c *FirecrawlClient) Search(ctx context.Context, query string) ([]Result, error) {
	if !c.Configured() {
		return nil, ErrSearchUnavailable
	}

	jsonData, err := json.Marshal(firecrawlSearchRequest{
		Query:         query,
		Limit:         c.Limit,
		Lang:          c.Lang,
		Country:       c.Country,
		ScrapeOptions: scrapeOptions{Formats: []string{"markdown"}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/search", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firecrawl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<10))
		return nil, fmt.Errorf("%w: firecrawl returned status %d: %s", ErrSearchUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed firecrawlSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Data == nil {
		return []Result{}, nil
	}
	return parsed.Data, nil
}
