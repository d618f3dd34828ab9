package search

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const maxPageChars = 8000

// Scraper visits the registry's portals with colly and serves as a
// Searcher when no hosted search API is configured.
type Scraper struct {
	Registry        *Registry
	UserAgent       string
	MaxBodySize     int
	MaxPDFs         int
	MaxResults      int
	Parallel        int
	IgnoreRobotsTxt bool
	// Transport defaults to NewSafeTransport.
	Transport http.RoundTripper
	Log       *zap.SugaredLogger
}

func NewScraper(reg *Registry, log *zap.SugaredLogger) *Scraper {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scraper{
		Registry:    reg,
		UserAgent:   "Mozilla/5.0 (compatible; GrantAI/1.0; +https://github.com/david/grantai)",
		MaxBodySize: 10 * 1024 * 1024,
		MaxPDFs:     3,
		MaxResults:  10,
		Parallel:    2,
		Transport:   NewSafeTransport(),
		Log:         log,
	}
}

func (s *Scraper) buildCollector(ctx context.Context, src SourceConfig) *colly.Collector {
	var domains []string
	for _, seed := range append([]string{src.BaseURL}, src.Seeds...) {
		if u, err := url.Parse(seed); err == nil && u.Hostname() != "" {
			domains = append(domains, u.Hostname())
		}
	}

	opts := []colly.CollectorOption{
		colly.UserAgent(s.UserAgent),
		colly.MaxBodySize(s.MaxBodySize),
		colly.MaxDepth(2),
		colly.DetectCharset(),
		colly.StdlibContext(ctx),
	}
	if len(domains) > 0 {
		opts = append(opts, colly.AllowedDomains(domains...))
	}
	if s.IgnoreRobotsTxt {
		opts = append(opts, colly.IgnoreRobotsTxt())
	}

	c := colly.NewCollector(opts...)
	if s.Transport != nil {
		c.WithTransport(s.Transport)
	}
	c.SetRedirectHandler(safeCheckRedirect)
	c.SetRequestTimeout(src.Fetch.Timeout())
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
		Delay:       src.Fetch.Delay(),
	})

	maxRetries := src.Fetch.MaxRetries
	c.OnError(func(r *colly.Response, err error) {
		retries, _ := r.Request.Ctx.GetAny("retries").(int)
		if retries >= maxRetries || ctx.Err() != nil {
			return
		}
		r.Request.Ctx.Put("retries", retries+1)
		s.Log.Infof("[Scraper] retry %d/%d for %s: %v", retries+1, maxRetries, r.Request.URL, err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(retries+1) * time.Second):
		}
		_ = r.Request.Retry()
	})

	return c
}

// ScrapeSource collects listing entries, page text and linked PDFs from one source.
func (s *Scraper) ScrapeSource(ctx context.Context, src SourceConfig) ([]Result, error) {
	c := s.buildCollector(ctx, src)

	var (
		mu      sync.Mutex
		results []Result
		errs    []error
		pdfs    int
	)
	add := func(r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	c.OnResponse(func(r *colly.Response) {
		pageURL := r.Request.URL.String()
		if isPDF(r.Headers.Get("Content-Type"), r.Body) {
			text, err := PDFToText(r.Body)
			if err != nil {
				s.Log.Warnf("[Scraper] %s: pdf %s unreadable: %v", src.ID, pageURL, err)
				return
			}
			add(Result{
				Title:    path.Base(r.Request.URL.Path),
				URL:      pageURL,
				Markdown: truncateText(text, maxPageChars),
			})
			return
		}
		title, text := pageText(r.Body)
		if text == "" {
			return
		}
		if title == "" {
			title = src.Name
		}
		add(Result{Title: title, URL: pageURL, Markdown: truncateText(text, maxPageChars)})
	})

	if src.Selectors.Item != "" {
		c.OnHTML(src.Selectors.Item, func(e *colly.HTMLElement) {
			title := firstText(e.DOM, src.Selectors.Title)
			href, _ := e.DOM.Find(orDefault(src.Selectors.Link, "a[href]")).First().Attr("href")
			link := e.Request.AbsoluteURL(strings.TrimSpace(href))
			if title == "" || link == "" {
				return
			}
			add(Result{
				Title:       title,
				URL:         link,
				Description: firstText(e.DOM, src.Selectors.Description),
			})

			if strings.HasSuffix(strings.ToLower(link), ".pdf") {
				mu.Lock()
				visit := pdfs < s.MaxPDFs
				if visit {
					pdfs++
				}
				mu.Unlock()
				if visit {
					if err := e.Request.Visit(link); err != nil {
						s.Log.Debugf("[Scraper] %s: skip %s: %v", src.ID, link, err)
					}
				}
			}
		})
	}

	c.OnError(func(r *colly.Response, err error) {
		mu.Lock()
		errs = append(errs, fmt.Errorf("%s: %w", r.Request.URL, err))
		mu.Unlock()
	})

	for _, seed := range src.Seeds {
		if err := c.Visit(seed); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", seed, err))
		}
	}
	c.Wait()

	results = dedupe(results)
	if len(results) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("scrape %s failed: %w", src.ID, errs[0])
	}
	return results, nil
}

// Search scrapes every enabled source and keeps the results that mention
// the query's terms, best matches first.
func (s *Scraper) Search(ctx context.Context, query string) ([]Result, error) {
	if s.Registry == nil {
		return nil, ErrSearchUnavailable
	}
	sources := s.Registry.Enabled()
	if len(sources) == 0 {
		return nil, ErrSearchUnavailable
	}

	perSource := make([][]Result, len(sources))
	failures := make([]error, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.Parallel))
	for i, src := range sources {
		g.Go(func() error {
			res, err := s.ScrapeSource(gctx, src)
			if err != nil {
				s.Log.Warnf("[Scraper] source %s failed: %v", src.ID, err)
				failures[i] = err
				return nil
			}
			s.Log.Infof("[Scraper] source %s: %d results", src.ID, len(res))
			perSource[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var all []Result
	var firstErr error
	failed := 0
	for i := range sources {
		if failures[i] != nil {
			failed++
			if firstErr == nil {
				firstErr = failures[i]
			}
			continue
		}
		all = append(all, perSource[i]...)
	}
	if failed == len(sources) {
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, firstErr)
	}
	return Rank(dedupe(all), query, s.MaxResults), nil
}

var stopWords = map[string]bool{
	"for": true, "and": true, "the": true, "with": true, "from": true, "india": true,
}

func queryTerms(query string) []string {
	var terms []string
	seen := map[string]bool{}
	for _, f := range strings.Fields(strings.ToLower(query)) {
		f = strings.Trim(f, `.,;:!?"'()`)
		if len(f) < 3 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// Rank orders results by how many distinct query terms they contain and
// drops those containing none. With no usable terms the input order is kept.
func Rank(results []Result, query string, limit int) []Result {
	terms := queryTerms(query)
	type scored struct {
		r     Result
		score int
	}
	var kept []scored
	for _, r := range results {
		if len(terms) == 0 {
			kept = append(kept, scored{r: r})
			continue
		}
		hay := strings.ToLower(r.Title + " " + r.Description + " " + r.Markdown)
		n := 0
		for _, t := range terms {
			if strings.Contains(hay, t) {
				n++
			}
		}
		if n > 0 {
			kept = append(kept, scored{r: r, score: n})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })

	out := make([]Result, 0, len(kept))
	for _, k := range kept {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, k.r)
	}
	return out
}

func dedupe(results []Result) []Result {
	index := make(map[string]int, len(results))
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if i, ok := index[r.URL]; ok {
			if out[i].Markdown == "" {
				out[i].Markdown = r.Markdown
			}
			if out[i].Description == "" {
				out[i].Description = r.Description
			}
			continue
		}
		index[r.URL] = len(out)
		out = append(out, r)
	}
	return out
}

func pageText(body []byte) (title, text string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ""
	}
	title = normalizeSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, nav, footer").Remove()
	return title, normalizeSpace(doc.Find("body").Text())
}

func firstText(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	return normalizeSpace(sel.Find(selector).First().Text())
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
