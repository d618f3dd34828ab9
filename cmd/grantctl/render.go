package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/david/grantai/internal/appstate"
	"github.com/david/grantai/internal/kanban"
	"github.com/david/grantai/internal/models"
	"github.com/david/grantai/internal/view"
)

func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}

func renderOpportunities(w io.Writer, opps []models.Opportunity, matches map[string]models.MatchResult) {
	t := newTable(w, table.Row{"ID", "Name", "Type", "Organization", "Amount", "Deadline", "Score"})
	for _, o := range opps {
		name := o.Name
		if o.IsNew {
			name += " (new)"
		}
		score := "-"
		if _, ok := matches[o.ID]; ok {
			score = fmt.Sprintf("%d%%", view.Score(matches, o.ID))
		}
		t.AppendRow(table.Row{o.ID, name, o.Type, o.Organization, o.Amount, o.Deadline, score})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d opportunities", len(opps))})
	t.Render()
}

func renderBoard(w io.Writer, cols []kanban.Column) {
	t := newTable(w, table.Row{"Column", "Tracked ID", "Opportunity", "Score", "Updated"})
	for _, col := range cols {
		title := fmt.Sprintf("%s (%d)", col.Title, len(col.Grants))
		if len(col.Grants) == 0 {
			t.AppendRow(table.Row{title, "", "", "", ""})
			continue
		}
		for i, g := range col.Grants {
			if i > 0 {
				title = ""
			}
			score := ""
			if g.EligibilityScore != nil {
				score = fmt.Sprintf("%d%%", *g.EligibilityScore)
			}
			t.AppendRow(table.Row{title, g.ID, g.OpportunityID, score, g.UpdatedAt.Local().Format("2006-01-02 15:04")})
		}
		t.AppendSeparator()
	}
	t.Render()
}

func renderDeadlines(w io.Writer, upcoming []view.Upcoming) {
	t := newTable(w, table.Row{"ID", "Name", "Type", "Deadline", "Days Left"})
	for _, u := range upcoming {
		t.AppendRow(table.Row{u.ID, u.Name, u.Type, u.DeadlineAt.Format("02 Jan 2006"), u.DaysLeft})
	}
	t.Render()
}

func renderMatches(w io.Writer, results []models.MatchResult) {
	t := newTable(w, table.Row{"ID", "Score", "Recommendation", "Gaps"})
	for _, m := range results {
		t.AppendRow(table.Row{m.ID, fmt.Sprintf("%d%%", m.Score), m.Recommendation, strings.Join(m.Gaps, "; ")})
	}
	t.Render()
}

func renderStats(w io.Writer, s view.Stats) {
	t := newTable(w, table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Opportunities", s.Total})
	for _, typ := range []models.OpportunityType{models.TypeGrant, models.TypeHackathon, models.TypeAccelerator, models.TypeProgram} {
		t.AppendRow(table.Row{"  " + string(typ), s.ByType[typ]})
	}
	t.AppendRow(table.Row{"New", s.New})
	t.AppendRow(table.Row{"Tracked", s.Tracked})
	t.AppendRow(table.Row{"Matched", s.Matched})
	t.AppendRow(table.Row{"Strong matches", s.HighMatches})
	t.AppendRow(table.Row{"Bookmarked", s.Bookmarked})
	t.Render()
}

func renderDetail(w io.Writer, d appstate.Detail) {
	o := d.Opportunity
	fmt.Fprintf(w, "%s  [%s]\n", o.Name, o.Type)
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "  %-12s %s\n", label+":", value)
		}
	}
	field("ID", o.ID)
	field("Organization", o.Organization)
	field("Amount", o.Amount)
	field("Deadline", o.Deadline)
	field("Focus", o.Focus)
	field("Eligibility", o.Eligibility)
	field("Level", o.Level)
	field("Features", o.Features)
	field("URL", o.URL)
	if d.Bookmarked {
		field("Bookmarked", "yes")
	}
	if d.Tracked != nil {
		field("Tracking", fmt.Sprintf("%s (%s)", d.Tracked.Status.Title(), d.Tracked.ID))
	}
	if d.Match != nil {
		field("Match", fmt.Sprintf("%d%% %s", d.Match.Score, d.Match.Recommendation))
		for _, r := range d.Match.Reasons {
			fmt.Fprintf(w, "    + %s\n", r)
		}
		for _, g := range d.Match.Gaps {
			fmt.Fprintf(w, "    - %s\n", g)
		}
	}
}
