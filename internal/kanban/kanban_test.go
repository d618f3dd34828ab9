package kanban

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/grantai/internal/models"
)

func TestNext(t *testing.T) {
	tests := []struct {
		from models.Status
		want models.Status
		ok   bool
	}{
		{models.StatusDiscovered, models.StatusInterested, true},
		{models.StatusSubmitted, models.StatusUnderReview, true},
		{models.StatusUnderReview, models.StatusAwarded, true},
		{models.StatusAwarded, models.StatusAwarded, false},
		{models.StatusRejected, models.StatusRejected, false},
		{models.Status("nope"), models.Status("nope"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			got, ok := Next(tt.from)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestPrev(t *testing.T) {
	got, ok := Prev(models.StatusDiscovered)
	assert.False(t, ok)
	assert.Equal(t, models.StatusDiscovered, got)

	got, ok = Prev(models.StatusRejected)
	assert.True(t, ok)
	assert.Equal(t, models.StatusAwarded, got)

	got, ok = Prev(models.StatusEligible)
	assert.True(t, ok)
	assert.Equal(t, models.StatusInterested, got)
}

func TestForwardBackward(t *testing.T) {
	_, err := Forward(models.StatusRejected)
	assert.ErrorIs(t, err, ErrTerminal)

	_, err = Backward(models.StatusDiscovered)
	assert.ErrorIs(t, err, ErrAtStart)

	_, err = Forward("bogus")
	assert.ErrorIs(t, err, ErrUnknownStatus)

	tr, err := Forward(models.StatusApplying)
	require.NoError(t, err)
	assert.Equal(t, Transition{Kind: Sequential, Target: models.StatusSubmitted}, tr)
}

func TestTransitionApply(t *testing.T) {
	tests := []struct {
		name    string
		current models.Status
		tr      Transition
		want    models.Status
		err     error
	}{
		{"sequential forward", models.StatusInterested, Transition{Sequential, models.StatusEligible}, models.StatusEligible, nil},
		{"sequential backward", models.StatusEligible, Transition{Sequential, models.StatusInterested}, models.StatusInterested, nil},
		{"sequential skip rejected", models.StatusInterested, Transition{Sequential, models.StatusSubmitted}, models.StatusInterested, ErrNotAdjacent},
		{"sequential same status", models.StatusApplying, Transition{Sequential, models.StatusApplying}, models.StatusApplying, ErrNotAdjacent},
		{"awarded to rejected is a forward move from terminal", models.StatusAwarded, Transition{Sequential, models.StatusRejected}, models.StatusAwarded, ErrTerminal},
		{"rejected back to awarded", models.StatusRejected, Transition{Sequential, models.StatusAwarded}, models.StatusAwarded, nil},
		{"direct jump", models.StatusDiscovered, To(models.StatusRejected), models.StatusRejected, nil},
		{"direct out of terminal", models.StatusAwarded, To(models.StatusInterested), models.StatusInterested, nil},
		{"direct unknown target", models.StatusDiscovered, To("bogus"), models.StatusDiscovered, ErrUnknownStatus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.tr.Apply(tt.current)
			if tt.err != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.err), "got %v, want %v", err, tt.err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBoard(t *testing.T) {
	tracked := []models.TrackedGrant{
		{ID: "1", Status: models.StatusApplying},
		{ID: "2", Status: models.StatusInterested},
		{ID: "3", Status: models.StatusApplying},
		{ID: "4", Status: "legacy"},
	}
	cols := Board(tracked)
	require.Len(t, cols, len(models.Statuses))
	assert.Equal(t, models.StatusDiscovered, cols[0].Status)
	assert.Equal(t, "Under Review", cols[5].Title)
	assert.Empty(t, cols[0].Grants)
	assert.NotNil(t, cols[0].Grants)

	applying := cols[models.StatusApplying.Index()].Grants
	require.Len(t, applying, 2)
	assert.Equal(t, "1", applying[0].ID)
	assert.Equal(t, "3", applying[1].ID)
}
