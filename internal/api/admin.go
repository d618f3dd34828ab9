package api

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/david/grantai/internal/search"
)

const scrapeJobTimeout = 10 * time.Minute

type backgroundJob struct {
	ID        string             `json:"id"`
	Source    string             `json:"source"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Results   []search.Result    `json:"results,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

var (
	adminSecretOnce     sync.Once
	adminSecretFallback string
)

func (s *Server) resolveAdminSecret() string {
	if s.adminSecret != "" {
		return s.adminSecret
	}
	adminSecretOnce.Do(func() {
		buf := make([]byte, 48)
		if _, err := rand.Read(buf); err != nil {
			s.Log.Errorf("[Admin] failed to generate ADMIN_SECRET fallback: %v", err)
			return
		}
		adminSecretFallback = base64.RawURLEncoding.EncodeToString(buf)
		s.Log.Warn("[Admin] ADMIN_SECRET is not set; using ephemeral in-memory fallback secret")
	})
	return adminSecretFallback
}

func (s *Server) adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		secret := s.resolveAdminSecret()
		if secret == "" {
			return errorJSON(c, http.StatusInternalServerError, "Server admin configuration error")
		}

		// Check X-Admin-Secret header or Bearer token
		candidate := c.Request().Header.Get("X-Admin-Secret")
		if candidate == "" {
			authHeader := c.Request().Header.Get("Authorization")
			if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
				candidate = authHeader[7:]
			}
		}
		if candidate != "" && subtle.ConstantTimeCompare([]byte(candidate), []byte(secret)) == 1 {
			return next(c)
		}
		return errorJSON(c, http.StatusUnauthorized, "Unauthorized admin access")
	}
}

// handleScrapeSource starts a background scrape of one registry source.
// Only one scrape runs at a time.
func (s *Server) handleScrapeSource(c echo.Context) error {
	if s.Scraper == nil || s.Scraper.Registry == nil {
		return errorJSON(c, http.StatusServiceUnavailable, "Scraping is not configured")
	}
	src, ok := s.Scraper.Registry.Source(c.Param("source"))
	if !ok {
		return errorJSON(c, http.StatusNotFound, "Unknown source")
	}

	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		running := *s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]any{"error": "A scrape is already running", "job": running})
	}
	ctx, cancel := context.WithTimeout(context.Background(), scrapeJobTimeout)
	job := &backgroundJob{
		ID:        uuid.NewString(),
		Source:    src.ID,
		Status:    "running",
		StartedAt: time.Now().UTC(),
		Cancel:    cancel,
	}
	s.runningJob = job
	s.jobs[job.ID] = job
	snapshot := *job
	s.jobMu.Unlock()

	go func() {
		defer cancel()
		s.Log.Infof("[Admin] scrape job %s started for %s", job.ID, src.ID)
		results, err := s.Scraper.ScrapeSource(ctx, src)

		s.jobMu.Lock()
		defer s.jobMu.Unlock()
		job.EndedAt = time.Now().UTC()
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
			s.Log.Errorf("[Admin] scrape job %s failed: %v", job.ID, err)
			return
		}
		job.Status = "completed"
		job.Results = results
		s.Log.Infof("[Admin] scrape job %s completed: %d results", job.ID, len(results))
	}()

	return c.JSON(http.StatusAccepted, snapshot)
}

func (s *Server) handleJobStatus(c echo.Context) error {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	job, ok := s.jobs[c.Param("id")]
	if !ok {
		return errorJSON(c, http.StatusNotFound, "Job not found")
	}
	return c.JSON(http.StatusOK, *job)
}

func (s *Server) cancelRunningJob() {
	s.jobMu.Lock()
	defer s.jobMu.Unlock()
	if s.runningJob != nil && s.runningJob.Cancel != nil {
		s.runningJob.Cancel()
	}
}
