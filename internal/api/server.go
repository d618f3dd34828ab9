package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/david/grantai/internal/ai"
	"github.com/david/grantai/internal/appstate"
	"github.com/david/grantai/internal/auth"
	"github.com/david/grantai/internal/models"
	"github.com/david/grantai/internal/search"
	"github.com/david/grantai/internal/view"
)

// ChatStreamer opens a streamed chat completion.
type ChatStreamer interface {
	Stream(ctx context.Context, messages []ai.Message) (io.ReadCloser, error)
}

// Deps are the collaborators the server is built from. Chat and Scraper
// may be nil; the matching routes then report the service as unavailable.
type Deps struct {
	Users       auth.UserStore
	Sessions    *appstate.Sessions
	Catalog     []models.Opportunity
	Chat        ChatStreamer
	Scraper     *search.Scraper
	CORSOrigins []string
	AdminSecret string
	Log         *zap.SugaredLogger
}

type Server struct {
	Echo        *echo.Echo
	AuthService *auth.Service
	Sessions    *appstate.Sessions
	Catalog     []models.Opportunity
	Chat        ChatStreamer
	Scraper     *search.Scraper
	Log         *zap.SugaredLogger

	adminSecret string

	// Background scrape tracking
	jobMu      sync.Mutex
	runningJob *backgroundJob
	jobs       map[string]*backgroundJob
}

func NewServer(d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop().Sugar()
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:4200"}
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	s := &Server{
		Echo:        e,
		AuthService: auth.NewService(d.Users),
		Sessions:    d.Sessions,
		Catalog:     d.Catalog,
		Chat:        d.Chat,
		Scraper:     d.Scraper,
		Log:         d.Log,
		adminSecret: d.AdminSecret,
		jobs:        make(map[string]*backgroundJob),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)
	api := s.Echo.Group("/api/v1")
	api.GET("/opportunities", s.handleListOpportunities)
	api.GET("/stats", s.handleGetStats)
	api.GET("/sources", s.handleGetSources)

	// Auth Routes
	api.POST("/auth/signup", s.handleSignup)
	api.POST("/auth/login", s.handleLogin)

	// Admin Routes (source scraping)
	admin := api.Group("/admin")
	admin.Use(s.adminMiddleware)
	admin.POST("/scrape/:source", s.handleScrapeSource)
	admin.GET("/job/:id", s.handleJobStatus)

	// Protected Routes (per-user session)
	me := api.Group("/me")
	me.Use(auth.Middleware)
	me.GET("/state", s.handleGetState)
	me.GET("/profile", s.handleGetProfile)
	me.PATCH("/profile", s.handlePatchProfile)
	me.POST("/onboarding", s.handleOnboarding)
	me.GET("/opportunities", s.handleListSessionOpportunities)
	me.GET("/opportunities/:id", s.handleGetOpportunity)
	me.GET("/bookmarks", s.handleGetBookmarks)
	me.POST("/bookmarks/:id", s.handleToggleBookmark)
	me.GET("/tracked", s.handleGetTracked)
	me.POST("/tracked", s.handleTrackGrant)
	me.PATCH("/tracked/:id", s.handleUpdateTracked)
	me.POST("/tracked/:id/next", s.handleMoveNext)
	me.POST("/tracked/:id/prev", s.handleMovePrev)
	me.DELETE("/tracked/:id", s.handleRemoveTracked)
	me.GET("/board", s.handleGetBoard)
	me.GET("/deadlines", s.handleGetDeadlines)
	me.POST("/match", s.handleRunMatching)
	me.POST("/discover", s.handleDiscover)
	me.GET("/notifications", s.handleGetNotifications)
	me.POST("/chat", s.handleChat)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelRunningJob()
	return s.Echo.Shutdown(ctx)
}

func errorJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

type opportunityList struct {
	Opportunities []models.Opportunity `json:"opportunities"`
	Total         int                  `json:"total"`
}

func queryFromRequest(c echo.Context) view.Query {
	return view.Query{Text: c.QueryParam("q"), Category: c.QueryParam("category")}
}

func (s *Server) handleListOpportunities(c echo.Context) error {
	opps := view.Apply(s.Catalog, queryFromRequest(c), nil)
	return c.JSON(http.StatusOK, opportunityList{Opportunities: opps, Total: len(opps)})
}

func (s *Server) handleGetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, view.ComputeStats(s.Catalog, nil, nil, nil))
}

type sourceInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	BaseURL string `json:"baseUrl"`
}

func (s *Server) handleGetSources(c echo.Context) error {
	sources := []sourceInfo{}
	if s.Scraper != nil && s.Scraper.Registry != nil {
		for _, src := range s.Scraper.Registry.Enabled() {
			sources = append(sources, sourceInfo{ID: src.ID, Name: src.Name, BaseURL: src.BaseURL})
		}
	}
	return c.JSON(http.StatusOK, sources)
}

func (s *Server) handleSignup(c echo.Context) error {
	var req auth.SignupRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}

	resp, err := s.AuthService.Signup(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidInput):
			return errorJSON(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, auth.ErrUserExists):
			return errorJSON(c, http.StatusConflict, err.Error())
		}
		s.Log.Errorf("[API] signup failed: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal Server Error")
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req auth.LoginRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}

	resp, err := s.AuthService.Login(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCreds) {
			return errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
		}
		s.Log.Errorf("[API] login failed: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "Internal Server Error")
	}

	return c.JSON(http.StatusOK, resp)
}
