package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/david/grantai/internal/ai"
	"github.com/david/grantai/internal/appstate"
	"github.com/david/grantai/internal/auth"
	"github.com/david/grantai/internal/kanban"
	"github.com/david/grantai/internal/models"
	"github.com/david/grantai/internal/view"
)

const (
	defaultDeadlineDays = 30
	maxDeadlineDays     = 365
)

// session resolves the caller's store. On failure it writes the error
// response itself and returns a nil store.
func (s *Server) session(c echo.Context) (*appstate.Store, string, error) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		return nil, "", errorJSON(c, http.StatusUnauthorized, "Unauthorized")
	}
	store, err := s.Sessions.Get(c.Request().Context(), userID.String())
	if err != nil {
		s.Log.Errorf("[API] open session %s: %v", userID, err)
		return nil, "", errorJSON(c, http.StatusInternalServerError, "Failed to load session")
	}
	return store, userID.String(), nil
}

// storeError maps store and kanban errors onto HTTP responses.
func (s *Server) storeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, appstate.ErrNotTracked):
		return errorJSON(c, http.StatusNotFound, "Tracked grant not found")
	case errors.Is(err, kanban.ErrUnknownStatus):
		return errorJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, kanban.ErrTerminal), errors.Is(err, kanban.ErrAtStart), errors.Is(err, kanban.ErrNotAdjacent):
		return errorJSON(c, http.StatusConflict, err.Error())
	case errors.Is(err, appstate.ErrInvalidProfile):
		return errorJSON(c, http.StatusUnprocessableEntity, err.Error())
	}
	s.Log.Errorf("[API] session operation failed: %v", err)
	return errorJSON(c, http.StatusInternalServerError, "Internal Server Error")
}

func (s *Server) handleGetState(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	return c.JSON(http.StatusOK, store.Snapshot())
}

func (s *Server) handleGetProfile(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	return c.JSON(http.StatusOK, store.Profile())
}

func (s *Server) handlePatchProfile(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	var patch models.ProfilePatch
	if err := c.Bind(&patch); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	profile, err := store.SetProfile(c.Request().Context(), patch)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

func (s *Server) handleOnboarding(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	var profile models.UserProfile
	if err := c.Bind(&profile); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	saved, err := store.CompleteOnboarding(c.Request().Context(), profile)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}

type scoredOpportunity struct {
	models.Opportunity
	Score int `json:"score"`
}

func (s *Server) handleListSessionOpportunities(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	opps := store.Opportunities(queryFromRequest(c))
	snap := store.Snapshot()
	scores := make(map[string]int, len(snap.Matches))
	for _, m := range snap.Matches {
		scores[m.ID] = m.Score
	}
	out := make([]scoredOpportunity, len(opps))
	for i, o := range opps {
		out[i] = scoredOpportunity{Opportunity: o, Score: scores[o.ID]}
	}
	return c.JSON(http.StatusOK, map[string]any{"opportunities": out, "total": len(out)})
}

func (s *Server) handleGetOpportunity(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	detail, ok := store.Lookup(c.Param("id"))
	if !ok {
		return errorJSON(c, http.StatusNotFound, "Not found")
	}
	return c.JSON(http.StatusOK, detail)
}

func (s *Server) handleGetBookmarks(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	return c.JSON(http.StatusOK, store.Snapshot().Bookmarks)
}

func (s *Server) handleToggleBookmark(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	bookmarked, err := store.ToggleBookmark(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"bookmarked": bookmarked})
}

func (s *Server) handleGetTracked(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	return c.JSON(http.StatusOK, store.Snapshot().Tracked)
}

type trackRequest struct {
	OpportunityID string        `json:"opportunityId"`
	Status        models.Status `json:"status"`
}

func (s *Server) handleTrackGrant(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	var req trackRequest
	if err := c.Bind(&req); err != nil || req.OpportunityID == "" {
		return errorJSON(c, http.StatusBadRequest, "opportunityId is required")
	}
	if _, ok := store.Lookup(req.OpportunityID); !ok {
		return errorJSON(c, http.StatusNotFound, "Opportunity not found")
	}
	tracked, created, err := store.TrackGrant(c.Request().Context(), req.OpportunityID, req.Status)
	if err != nil {
		return s.storeError(c, err)
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, tracked)
}

func findTracked(store *appstate.Store, id string) (models.TrackedGrant, bool) {
	for _, g := range store.Snapshot().Tracked {
		if g.ID == id {
			return g, true
		}
	}
	return models.TrackedGrant{}, false
}

func (s *Server) handleUpdateTracked(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	var req struct {
		Status models.Status `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	id := c.Param("id")
	if err := store.UpdateTrackedStatus(c.Request().Context(), id, req.Status); err != nil {
		return s.storeError(c, err)
	}
	tracked, ok := findTracked(store, id)
	if !ok {
		return s.storeError(c, appstate.ErrNotTracked)
	}
	return c.JSON(http.StatusOK, tracked)
}

func (s *Server) move(c echo.Context, build func(models.Status) (kanban.Transition, error)) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	id := c.Param("id")
	current, ok := findTracked(store, id)
	if !ok {
		return s.storeError(c, appstate.ErrNotTracked)
	}
	t, err := build(current.Status)
	if err != nil {
		return s.storeError(c, err)
	}
	moved, err := store.MoveTracked(c.Request().Context(), id, t)
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, moved)
}

func (s *Server) handleMoveNext(c echo.Context) error {
	return s.move(c, kanban.Forward)
}

func (s *Server) handleMovePrev(c echo.Context) error {
	return s.move(c, kanban.Backward)
}

func (s *Server) handleRemoveTracked(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	if err := store.RemoveTracked(c.Request().Context(), c.Param("id")); err != nil {
		return s.storeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetBoard(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	return c.JSON(http.StatusOK, store.Board())
}

// handleGetDeadlines lists opportunities closing within ?days= (default 30).
func (s *Server) handleGetDeadlines(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	days := defaultDeadlineDays
	if raw := c.QueryParam("days"); raw != "" {
		n, convErr := strconv.Atoi(raw)
		if convErr != nil || n < 1 || n > maxDeadlineDays {
			return errorJSON(c, http.StatusBadRequest, "days must be between 1 and 365")
		}
		days = n
	}
	upcoming := view.ClosingWithin(store.AllOpportunities(), time.Now().UTC(), time.Duration(days)*24*time.Hour)
	return c.JSON(http.StatusOK, upcoming)
}

func (s *Server) handleRunMatching(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	matches, err := store.RunMatching(c.Request().Context())
	if err != nil {
		switch {
		case errors.Is(err, appstate.ErrProfileIncomplete):
			return errorJSON(c, http.StatusUnprocessableEntity, "Please complete your profile first")
		case errors.Is(err, ai.ErrRateLimited):
			return errorJSON(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		case errors.Is(err, ai.ErrCreditsExhausted):
			return errorJSON(c, http.StatusPaymentRequired, "AI credits exhausted. Please add credits.")
		}
		return errorJSON(c, http.StatusBadGateway, "Failed to run AI matching")
	}
	return c.JSON(http.StatusOK, map[string]any{"matches": matches})
}

func (s *Server) handleDiscover(c echo.Context) error {
	store, _, err := s.session(c)
	if store == nil {
		return err
	}
	var req struct {
		Query string `json:"query"`
	}
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return errorJSON(c, http.StatusBadRequest, "Invalid request")
		}
	}
	grants, err := store.ScrapeNewGrants(c.Request().Context(), req.Query)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]any{"grants": grants, "error": "Failed to discover new grants"})
	}
	return c.JSON(http.StatusOK, map[string]any{"grants": grants})
}

func (s *Server) handleGetNotifications(c echo.Context) error {
	store, userID, err := s.session(c)
	if store == nil {
		return err
	}
	return c.JSON(http.StatusOK, s.Sessions.Notifications(userID))
}
