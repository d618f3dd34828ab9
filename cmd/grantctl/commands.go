package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/david/grantai/internal/appstate"
	"github.com/david/grantai/internal/kanban"
	"github.com/david/grantai/internal/models"
	"github.com/david/grantai/internal/view"
)

func catalogCmd(a *app) *cobra.Command {
	var q view.Query
	cmd := &cobra.Command{
		Use:     "catalog",
		Aliases: []string{"ls"},
		Short:   "List opportunities, best matches first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if q.Category != "" && !slices.Contains(view.Categories, q.Category) {
				return fmt.Errorf("unknown category %q (want one of %s)", q.Category, strings.Join(view.Categories, ", "))
			}
			opps := a.store.Opportunities(q)
			renderOpportunities(cmd.OutOrStdout(), opps, view.IndexMatches(a.store.Snapshot().Matches))
			return nil
		},
	}
	cmd.Flags().StringVarP(&q.Text, "query", "q", "", "filter by name, organization or focus")
	cmd.Flags().StringVarP(&q.Category, "category", "c", view.CategoryAll, "grant, hackathon, accelerator, program or all")
	return cmd
}

func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <opportunity-id>",
		Short: "Show one opportunity with its tracking and bookmark state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, ok := a.store.Lookup(args[0])
			if !ok {
				return fmt.Errorf("opportunity %q not found", args[0])
			}
			renderDetail(cmd.OutOrStdout(), d)
			return nil
		},
	}
}

func statsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the catalog and tracking board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderStats(cmd.OutOrStdout(), a.store.Stats())
			return nil
		},
	}
}

func boardCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show tracked grants grouped by pipeline status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderBoard(cmd.OutOrStdout(), a.store.Board())
			return nil
		},
	}
}

func deadlinesCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "deadlines",
		Short: "List opportunities closing soon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if days < 1 {
				return fmt.Errorf("--days must be positive, got %d", days)
			}
			upcoming := view.ClosingWithin(a.store.AllOpportunities(), time.Now().UTC(), time.Duration(days)*24*time.Hour)
			renderDeadlines(cmd.OutOrStdout(), upcoming)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "look-ahead window in days")
	return cmd
}

func trackCmd(a *app) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "track <opportunity-id>",
		Short: "Add an opportunity to the tracking board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := a.store.Lookup(args[0]); !ok {
				return fmt.Errorf("opportunity %q not found", args[0])
			}
			tracked, created, err := a.store.TrackGrant(cmd.Context(), args[0], models.Status(status))
			if err != nil {
				return fmt.Errorf("failed to track %s: %w", args[0], err)
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", tracked.ID, tracked.Status.Title())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "initial pipeline status (default interested)")
	return cmd
}

// parseMove turns a move argument into a transition from current. "next"
// and "prev" step along the pipeline; a status name jumps straight to it.
func parseMove(arg string, current models.Status) (kanban.Transition, error) {
	switch strings.ToLower(arg) {
	case "next", "forward":
		return kanban.Forward(current)
	case "prev", "back":
		return kanban.Backward(current)
	}
	target := models.Status(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(arg)), " ", "_"))
	if !target.Valid() {
		return kanban.Transition{}, fmt.Errorf("%w: %q", kanban.ErrUnknownStatus, arg)
	}
	return kanban.To(target), nil
}

func moveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <tracked-id> <next|prev|status>",
		Short: "Move a tracked grant along the pipeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var current *models.TrackedGrant
			for _, g := range a.store.Snapshot().Tracked {
				if g.ID == args[0] {
					current = &g
					break
				}
			}
			if current == nil {
				return fmt.Errorf("move %s: %w", args[0], appstate.ErrNotTracked)
			}
			t, err := parseMove(args[1], current.Status)
			if err != nil {
				return fmt.Errorf("move %s: %w", args[0], err)
			}
			moved, err := a.store.MoveTracked(cmd.Context(), args[0], t)
			if err != nil {
				return fmt.Errorf("move %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s -> %s\n", moved.ID, current.Status.Title(), moved.Status.Title())
			return nil
		},
	}
}

func untrackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "untrack <tracked-id>",
		Short: "Remove a grant from the tracking board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.store.RemoveTracked(cmd.Context(), args[0])
		},
	}
}

func bookmarkCmd(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "bookmark [opportunity-id]",
		Short: "Toggle a bookmark, or list bookmarks with --list",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list || len(args) == 0 {
				snap := a.store.Snapshot()
				var opps []models.Opportunity
				for _, o := range a.store.AllOpportunities() {
					if slices.Contains(snap.Bookmarks, o.ID) {
						opps = append(opps, o)
					}
				}
				renderOpportunities(cmd.OutOrStdout(), opps, view.IndexMatches(snap.Matches))
				return nil
			}
			_, err := a.store.ToggleBookmark(cmd.Context(), args[0])
			return err
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "list bookmarked opportunities")
	return cmd
}

func profileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit the business profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd, a.store.Profile())
		},
	}
	cmd.AddCommand(profileSetCmd(a))
	return cmd
}

type profileFlags struct {
	name, businessType, stage, revenue, description string
	city, state, country                            string
	employees                                       int
	focus                                           []string
	gstin, pan, msme, startupIndia                  bool
	onboard                                         bool
}

func profileSetCmd(a *app) *cobra.Command {
	var f profileFlags
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields; only flags given are changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			patch := f.patch(cmd, a.store.Profile())
			ctx := cmd.Context()
			if f.onboard {
				profile := patch.Apply(a.store.Profile())
				saved, err := a.store.CompleteOnboarding(ctx, profile)
				if err != nil {
					return fmt.Errorf("failed to save profile: %w", err)
				}
				return printJSON(cmd, saved)
			}
			saved, err := a.store.SetProfile(ctx, patch)
			if err != nil {
				return fmt.Errorf("failed to save profile: %w", err)
			}
			return printJSON(cmd, saved)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.name, "name", "", "business name")
	fl.StringVar(&f.businessType, "type", "", "business type (construction, retail, tech, manufacturing, services, other)")
	fl.StringVar(&f.stage, "stage", "", "stage (idea, mvp, early, growth, established)")
	fl.StringVar(&f.revenue, "revenue", "", "annual revenue")
	fl.StringVar(&f.description, "description", "", "project description")
	fl.StringVar(&f.city, "city", "", "city")
	fl.StringVar(&f.state, "state", "", "state")
	fl.StringVar(&f.country, "country", "", "country")
	fl.IntVar(&f.employees, "employees", 0, "number of employees")
	fl.StringSliceVar(&f.focus, "focus", nil, "focus areas, comma separated")
	fl.BoolVar(&f.gstin, "gstin", false, "GSTIN registered")
	fl.BoolVar(&f.pan, "pan", false, "PAN registered")
	fl.BoolVar(&f.msme, "msme", false, "MSME registered")
	fl.BoolVar(&f.startupIndia, "startup-india", false, "Startup India recognised")
	fl.BoolVar(&f.onboard, "onboard", false, "save as a completed onboarding")
	return cmd
}

// patch builds a ProfilePatch from the flags the user actually set.
func (f *profileFlags) patch(cmd *cobra.Command, current models.UserProfile) models.ProfilePatch {
	changed := cmd.Flags().Changed
	var p models.ProfilePatch
	if changed("name") {
		p.BusinessName = &f.name
	}
	if changed("type") {
		t := models.BusinessType(f.businessType)
		p.BusinessType = &t
	}
	if changed("stage") {
		s := models.Stage(f.stage)
		p.Stage = &s
	}
	if changed("revenue") {
		p.Revenue = &f.revenue
	}
	if changed("description") {
		p.ProjectDescription = &f.description
	}
	if changed("employees") {
		p.Employees = &f.employees
	}
	if changed("focus") {
		p.FocusAreas = f.focus
	}
	if changed("city") || changed("state") || changed("country") {
		loc := current.Location
		if changed("city") {
			loc.City = f.city
		}
		if changed("state") {
			loc.State = f.state
		}
		if changed("country") {
			loc.Country = f.country
		}
		p.Location = &loc
	}
	if changed("gstin") || changed("pan") || changed("msme") || changed("startup-india") {
		reg := current.Registrations
		if changed("gstin") {
			reg.GSTIN = f.gstin
		}
		if changed("pan") {
			reg.PAN = f.pan
		}
		if changed("msme") {
			reg.MSME = f.msme
		}
		if changed("startup-india") {
			reg.StartupIndia = f.startupIndia
		}
		p.Registrations = &reg
	}
	return p
}

func matchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "match",
		Short: "Score the catalog against the profile with the AI matcher",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			results, err := a.store.RunMatching(cmd.Context())
			if errors.Is(err, appstate.ErrProfileIncomplete) {
				return errors.New("set a business name first: grantctl profile set --name ...")
			}
			if err != nil {
				return err
			}
			slices.SortStableFunc(results, func(x, y models.MatchResult) int { return y.Score - x.Score })
			renderMatches(cmd.OutOrStdout(), results)
			return nil
		},
	}
}

func discoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "discover [query...]",
		Short: "Search the web for new opportunities",
		Long:  "Search the web for new opportunities. Without a query one is built from the profile.",
		RunE: func(cmd *cobra.Command, args []string) error {
			grants, err := a.store.ScrapeNewGrants(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if len(grants) > 0 {
				renderOpportunities(cmd.OutOrStdout(), grants, nil)
			}
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return nil
}
