// Package appstate holds one user's GrantAI session: profile, tracked
// grants, bookmarks, discovered opportunities and match results.
package appstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/david/grantai/internal/catalog"
	"github.com/david/grantai/internal/discovery"
	"github.com/david/grantai/internal/kanban"
	"github.com/david/grantai/internal/models"
	"github.com/david/grantai/internal/view"
)

// MatchBatch is how many catalog entries are sent for scoring.
const MatchBatch = 20

var (
	ErrProfileIncomplete = errors.New("profile incomplete: business name required")
	ErrInvalidProfile    = errors.New("profile requires a business name and state")
	ErrNotTracked        = errors.New("tracked grant not found")
	ErrUnavailable       = errors.New("remote service not configured")
)

// Scorer rates opportunities against a profile.
type Scorer interface {
	Match(ctx context.Context, profile models.UserProfile, opps []models.Opportunity) ([]models.MatchResult, error)
}

// Discoverer finds opportunities that are not in the catalog.
type Discoverer interface {
	Discover(ctx context.Context, query string) (*discovery.Response, error)
}

// State is a point-in-time copy of a session.
type State struct {
	Profile    models.UserProfile    `json:"profile"`
	Tracked    []models.TrackedGrant `json:"trackedGrants"`
	Bookmarks  []string              `json:"bookmarks"`
	Discovered []models.Opportunity  `json:"scrapedGrants"`
	Matches    []models.MatchResult  `json:"matchResults"`
	Matching   Lifecycle             `json:"matching"`
	Discovery  Lifecycle             `json:"discovery"`
}

func (st *State) clone() State {
	out := *st
	out.Tracked = slices.Clone(st.Tracked)
	out.Bookmarks = slices.Clone(st.Bookmarks)
	out.Discovered = slices.Clone(st.Discovered)
	out.Matches = slices.Clone(st.Matches)
	out.Profile.FocusAreas = slices.Clone(st.Profile.FocusAreas)
	if out.Tracked == nil {
		out.Tracked = []models.TrackedGrant{}
	}
	if out.Bookmarks == nil {
		out.Bookmarks = []string{}
	}
	if out.Discovered == nil {
		out.Discovered = []models.Opportunity{}
	}
	if out.Matches == nil {
		out.Matches = []models.MatchResult{}
	}
	return out
}

func (st *State) findTracked(id string) int {
	return slices.IndexFunc(st.Tracked, func(g models.TrackedGrant) bool { return g.ID == id })
}

// Options configures a Store. Zero values are usable: no scorer or
// discoverer means those operations fail with ErrUnavailable.
type Options struct {
	Catalog    []models.Opportunity
	Scorer     Scorer
	Discoverer Discoverer
	Notifier   Notifier
	Log        *zap.SugaredLogger
	Now        func() time.Time
	NewID      func() string
}

// Store is the single authoritative holder of a session's state. Every
// mutation goes through update, which persists the profile, tracked grants
// and bookmarks before returning. The lock is released around remote calls.
type Store struct {
	mu    sync.Mutex
	state State

	storage    Storage
	catalog    []models.Opportunity
	scorer     Scorer
	discoverer Discoverer
	notifier   Notifier
	log        *zap.SugaredLogger
	now        func() time.Time
	newID      func() string
}

// Open loads the persisted snapshots from storage. Missing keys start from
// the default profile and empty lists.
func Open(ctx context.Context, storage Storage, opts Options) (*Store, error) {
	s := &Store{
		storage:    storage,
		catalog:    opts.Catalog,
		scorer:     opts.Scorer,
		discoverer: opts.Discoverer,
		notifier:   opts.Notifier,
		log:        opts.Log,
		now:        opts.Now,
		newID:      opts.NewID,
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return "tracked-" + uuid.NewString() }
	}
	if s.notifier == nil {
		s.notifier = NewNotificationQueue()
	}

	s.state.Profile = models.DefaultProfile()
	if err := loadSnapshot(ctx, s, KeyProfile, &s.state.Profile); err != nil {
		return nil, err
	}
	if err := loadSnapshot(ctx, s, KeyTracked, &s.state.Tracked); err != nil {
		return nil, err
	}
	s.state.Tracked = s.validTracked(s.state.Tracked)
	if err := loadSnapshot(ctx, s, KeyBookmarks, &s.state.Bookmarks); err != nil {
		return nil, err
	}
	return s, nil
}

// loadSnapshot decodes the stored value for key over *dst. A value that
// does not decode leaves *dst untouched.
func loadSnapshot[T any](ctx context.Context, s *Store, key string, dst *T) error {
	data, ok, err := s.storage.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	v := *dst
	if err := json.Unmarshal(data, &v); err != nil {
		s.log.Warnf("[State] ignoring corrupt %s snapshot: %v", key, err)
		return nil
	}
	*dst = v
	return nil
}

// validTracked drops stored entries with an unknown status or a repeated
// opportunity id. The first entry per opportunity wins.
func (s *Store) validTracked(tracked []models.TrackedGrant) []models.TrackedGrant {
	seen := make(map[string]bool, len(tracked))
	out := make([]models.TrackedGrant, 0, len(tracked))
	for _, g := range tracked {
		switch {
		case !g.Status.Valid():
			s.log.Warnf("[State] dropping tracked grant %s: unknown status %q", g.ID, g.Status)
		case seen[g.OpportunityID]:
			s.log.Warnf("[State] dropping tracked grant %s: %s is already tracked", g.ID, g.OpportunityID)
		default:
			seen[g.OpportunityID] = true
			out = append(out, g)
		}
	}
	return out
}

func (s *Store) persist(ctx context.Context, st *State) error {
	snapshots := []struct {
		key   string
		value any
	}{
		{KeyProfile, st.Profile},
		{KeyTracked, nonNilTracked(st.Tracked)},
		{KeyBookmarks, nonNilStrings(st.Bookmarks)},
	}
	for _, snap := range snapshots {
		data, err := json.Marshal(snap.value)
		if err != nil {
			return fmt.Errorf("failed to marshal %s: %w", snap.key, err)
		}
		if err := s.storage.Save(ctx, snap.key, data); err != nil {
			return fmt.Errorf("failed to save %s: %w", snap.key, err)
		}
	}
	return nil
}

// update applies fn to a copy of the state under the lock. When fn reports
// a change the copy is persisted and only then becomes the current state.
func (s *Store) update(ctx context.Context, fn func(st *State) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.clone()
	if !fn(&next) {
		return nil
	}
	if err := s.persist(ctx, &next); err != nil {
		s.log.Errorf("[State] persist failed: %v", err)
		return err
	}
	s.state = next
	return nil
}

func (s *Store) notify(level Level, format string, args ...any) {
	s.notifier.Notify(Notification{Level: level, Message: fmt.Sprintf(format, args...), At: s.now().UTC()})
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

func (s *Store) Profile() models.UserProfile {
	return s.Snapshot().Profile
}

// SetProfile shallow-merges patch into the profile. No validation.
func (s *Store) SetProfile(ctx context.Context, patch models.ProfilePatch) (models.UserProfile, error) {
	var out models.UserProfile
	err := s.update(ctx, func(st *State) bool {
		st.Profile = patch.Apply(st.Profile)
		out = st.Profile
		return true
	})
	return out, err
}

// CompleteOnboarding replaces the profile with p once it has a business
// name and state. The session's profile id is kept.
func (s *Store) CompleteOnboarding(ctx context.Context, p models.UserProfile) (models.UserProfile, error) {
	if strings.TrimSpace(p.BusinessName) == "" || strings.TrimSpace(p.Location.State) == "" {
		return models.UserProfile{}, ErrInvalidProfile
	}
	var out models.UserProfile
	err := s.update(ctx, func(st *State) bool {
		p.ID = st.Profile.ID
		if p.FocusAreas == nil {
			p.FocusAreas = []string{}
		}
		st.Profile = p
		out = p
		return true
	})
	if err == nil {
		s.notify(LevelSuccess, "Profile saved")
	}
	return out, err
}

// ToggleBookmark flips membership of id and reports whether it is now bookmarked.
func (s *Store) ToggleBookmark(ctx context.Context, id string) (bool, error) {
	var added bool
	err := s.update(ctx, func(st *State) bool {
		if i := slices.Index(st.Bookmarks, id); i >= 0 {
			st.Bookmarks = slices.Delete(st.Bookmarks, i, i+1)
			return true
		}
		st.Bookmarks = append(st.Bookmarks, id)
		added = true
		return true
	})
	if err != nil {
		return false, err
	}
	if added {
		s.notify(LevelSuccess, "Added to bookmarks")
	} else {
		s.notify(LevelInfo, "Removed from bookmarks")
	}
	return added, nil
}

// TrackGrant starts tracking an opportunity. An empty status means
// interested. When the opportunity is already tracked the existing entry is
// returned with created=false and nothing changes.
func (s *Store) TrackGrant(ctx context.Context, opportunityID string, status models.Status) (tracked models.TrackedGrant, created bool, err error) {
	if status == "" {
		status = models.StatusInterested
	}
	if !status.Valid() {
		return models.TrackedGrant{}, false, fmt.Errorf("%w: %q", kanban.ErrUnknownStatus, status)
	}

	err = s.update(ctx, func(st *State) bool {
		for _, g := range st.Tracked {
			if g.OpportunityID == opportunityID {
				tracked = g
				return false
			}
		}
		now := s.now().UTC()
		tracked = models.TrackedGrant{
			ID:            s.newID(),
			OpportunityID: opportunityID,
			Status:        status,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		st.Tracked = append(st.Tracked, tracked)
		created = true
		return true
	})
	if err != nil {
		return models.TrackedGrant{}, false, err
	}
	if created {
		s.notify(LevelSuccess, "Added to tracking board")
	} else {
		s.notify(LevelInfo, "Already tracking: %s", tracked.Status)
	}
	return tracked, created, nil
}

// UpdateTrackedStatus sets the status of a tracked grant. An unknown
// trackedID is a silent no-op.
func (s *Store) UpdateTrackedStatus(ctx context.Context, trackedID string, status models.Status) error {
	_, err := s.MoveTracked(ctx, trackedID, kanban.To(status))
	if errors.Is(err, ErrNotTracked) {
		return nil
	}
	return err
}

// MoveTracked applies a kanban transition to a tracked grant.
func (s *Store) MoveTracked(ctx context.Context, trackedID string, t kanban.Transition) (models.TrackedGrant, error) {
	var (
		out    models.TrackedGrant
		opErr error
	)
	err := s.update(ctx, func(st *State) bool {
		i := st.findTracked(trackedID)
		if i < 0 {
			opErr = ErrNotTracked
			return false
		}
		next, err := t.Apply(st.Tracked[i].Status)
		if err != nil {
			opErr = err
			return false
		}
		st.Tracked[i].Status = next
		st.Tracked[i].UpdatedAt = s.now().UTC()
		out = st.Tracked[i]
		return true
	})
	if opErr != nil {
		return models.TrackedGrant{}, opErr
	}
	return out, err
}

// RemoveTracked deletes a tracked grant if present.
func (s *Store) RemoveTracked(ctx context.Context, trackedID string) error {
	err := s.update(ctx, func(st *State) bool {
		i := st.findTracked(trackedID)
		if i < 0 {
			return false
		}
		st.Tracked = slices.Delete(st.Tracked, i, i+1)
		return true
	})
	if err == nil {
		s.notify(LevelInfo, "Removed from tracking")
	}
	return err
}

func (s *Store) setLifecycle(field *Lifecycle, l Lifecycle) {
	s.mu.Lock()
	*field = l
	s.mu.Unlock()
}

// RunMatching scores the first MatchBatch catalog entries against the
// profile, replaces the match results and back-fills tracked grants. On
// failure the previous results are kept.
func (s *Store) RunMatching(ctx context.Context) ([]models.MatchResult, error) {
	s.mu.Lock()
	profile := s.state.Profile
	if !profile.HasBusinessName() {
		s.mu.Unlock()
		s.notify(LevelError, "Please complete your profile first")
		return nil, ErrProfileIncomplete
	}
	s.state.Matching = Pending
	s.mu.Unlock()

	fail := func(err error) ([]models.MatchResult, error) {
		s.setLifecycle(&s.state.Matching, Failed)
		s.log.Errorf("[State] matching error: %v", err)
		s.notify(LevelError, "Failed to run AI matching")
		return nil, fmt.Errorf("run matching: %w", err)
	}

	if s.scorer == nil {
		return fail(ErrUnavailable)
	}
	batch := s.catalog
	if len(batch) > MatchBatch {
		batch = batch[:MatchBatch]
	}
	results, err := s.scorer.Match(ctx, profile, batch)
	if err != nil {
		return fail(err)
	}
	if results == nil {
		results = []models.MatchResult{}
	}

	byID := view.IndexMatches(results)
	now := s.now().UTC()
	err = s.update(ctx, func(st *State) bool {
		st.Matches = slices.Clone(results)
		for i, g := range st.Tracked {
			m, ok := byID[g.OpportunityID]
			if !ok {
				continue
			}
			score := m.Score
			st.Tracked[i].EligibilityScore = &score
			st.Tracked[i].MatchReasons = slices.Clone(m.Reasons)
			st.Tracked[i].Gaps = slices.Clone(m.Gaps)
			st.Tracked[i].UpdatedAt = now
		}
		st.Matching = Succeeded
		return true
	})
	if err != nil {
		return fail(err)
	}
	s.notify(LevelSuccess, "Analyzed %d opportunities", len(results))
	return results, nil
}

// ScrapeNewGrants discovers opportunities for query, or for a query built
// from the profile when query is blank, and appends them to the discovered
// set without de-duplication. On failure it returns an empty list.
func (s *Store) ScrapeNewGrants(ctx context.Context, query string) ([]models.Opportunity, error) {
	s.mu.Lock()
	if strings.TrimSpace(query) == "" {
		query = discovery.ProfileQuery(s.state.Profile)
	}
	s.state.Discovery = Pending
	s.mu.Unlock()

	fail := func(err error) ([]models.Opportunity, error) {
		s.setLifecycle(&s.state.Discovery, Failed)
		s.log.Errorf("[State] scrape error: %v", err)
		s.notify(LevelError, "Failed to discover new grants")
		return []models.Opportunity{}, fmt.Errorf("discover grants: %w", err)
	}

	if s.discoverer == nil {
		return fail(ErrUnavailable)
	}
	resp, err := s.discoverer.Discover(ctx, query)
	if err != nil {
		return fail(err)
	}

	grants := make([]models.Opportunity, 0, len(resp.Grants))
	for _, g := range resp.Grants {
		if g.Type == "" {
			g.Type = models.TypeGrant
		}
		g.IsNew = true
		grants = append(grants, g)
	}

	s.mu.Lock()
	s.state.Discovered = append(s.state.Discovered, grants...)
	s.state.Discovery = Succeeded
	s.mu.Unlock()

	if resp.Message != "" {
		s.notify(LevelSuccess, "%s", resp.Message)
	}
	return grants, nil
}

// AllOpportunities returns the catalog followed by discovered opportunities.
func (s *Store) AllOpportunities() []models.Opportunity {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Opportunity, 0, len(s.catalog)+len(s.state.Discovered))
	out = append(out, s.catalog...)
	return append(out, s.state.Discovered...)
}

// Opportunities filters all opportunities by q and sorts them by match score.
func (s *Store) Opportunities(q view.Query) []models.Opportunity {
	all := s.AllOpportunities()
	return view.Apply(all, q, s.matchIndex())
}

func (s *Store) matchIndex() map[string]models.MatchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return view.IndexMatches(s.state.Matches)
}

// Detail is an opportunity together with the session's view of it.
type Detail struct {
	Opportunity models.Opportunity   `json:"opportunity"`
	Match       *models.MatchResult  `json:"match,omitempty"`
	Tracked     *models.TrackedGrant `json:"tracked,omitempty"`
	Bookmarked  bool                 `json:"isBookmarked"`
}

// Lookup finds an opportunity by id with its match, tracking entry and bookmark flag.
func (s *Store) Lookup(opportunityID string) (Detail, bool) {
	opp, ok := catalog.Find(s.AllOpportunities(), opportunityID)
	if !ok {
		return Detail{}, false
	}
	st := s.Snapshot()
	d := Detail{Opportunity: opp, Bookmarked: slices.Contains(st.Bookmarks, opportunityID)}
	for i := range st.Matches {
		if st.Matches[i].ID == opportunityID {
			d.Match = &st.Matches[i]
			break
		}
	}
	for i := range st.Tracked {
		if st.Tracked[i].OpportunityID == opportunityID {
			d.Tracked = &st.Tracked[i]
			break
		}
	}
	return d, true
}

// Board groups tracked grants into kanban columns.
func (s *Store) Board() []kanban.Column {
	return kanban.Board(s.Snapshot().Tracked)
}

func (s *Store) Stats() view.Stats {
	st := s.Snapshot()
	return view.ComputeStats(s.AllOpportunities(), st.Tracked, view.IndexMatches(st.Matches), st.Bookmarks)
}

func nonNilTracked(v []models.TrackedGrant) []models.TrackedGrant {
	if v == nil {
		return []models.TrackedGrant{}
	}
	return v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
