package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/david/grantai/internal/chat"
	"github.com/david/grantai/internal/kanban"
	"github.com/david/grantai/internal/models"
)

type cli struct {
	t   *testing.T
	dir string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	return &cli{t: t, dir: t.TempDir()}
}

// exec runs one command against the shared data dir and returns stdout and stderr.
func (c *cli) exec(args ...string) (string, string, error) {
	c.t.Helper()
	full := append([]string{
		"--data-dir", c.dir,
		"--env-file", filepath.Join(c.dir, "missing.env"),
		"--log-level", "error",
	}, args...)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), full, strings.NewReader(""), &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestParseMove(t *testing.T) {
	tests := []struct {
		arg     string
		current models.Status
		want    kanban.Transition
		wantErr error
	}{
		{"next", models.StatusInterested, kanban.Transition{Kind: kanban.Sequential, Target: models.StatusEligible}, nil},
		{"PREV", models.StatusInterested, kanban.Transition{Kind: kanban.Sequential, Target: models.StatusDiscovered}, nil},
		{"under review", models.StatusDiscovered, kanban.Transition{Kind: kanban.Direct, Target: models.StatusUnderReview}, nil},
		{"rejected", models.StatusApplying, kanban.Transition{Kind: kanban.Direct, Target: models.StatusRejected}, nil},
		{"next", models.StatusAwarded, kanban.Transition{}, kanban.ErrTerminal},
		{"prev", models.StatusDiscovered, kanban.Transition{}, kanban.ErrAtStart},
		{"shipped", models.StatusDiscovered, kanban.Transition{}, kanban.ErrUnknownStatus},
	}
	for _, tt := range tests {
		t.Run(tt.arg+"/"+string(tt.current), func(t *testing.T) {
			got, err := parseMove(tt.arg, tt.current)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrackMoveAndBoard(t *testing.T) {
	c := newCLI(t)

	out, errOut, err := c.exec("track", "sisfs")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Added to tracking board")
	fields := strings.Fields(out)
	require.Len(t, fields, 2, "track output: %q", out)
	trackedID := fields[0]
	assert.True(t, strings.HasPrefix(trackedID, "tracked-"))
	assert.Equal(t, "Interested", fields[1])

	// Tracking again is a no-op with an info notice.
	out, errOut, err = c.exec("track", "sisfs")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "Already tracking")

	out, _, err = c.exec("move", trackedID, "next")
	require.NoError(t, err)
	assert.Contains(t, out, "Interested -> Eligible")

	out, _, err = c.exec("move", trackedID, "awarded")
	require.NoError(t, err)
	assert.Contains(t, out, "Eligible -> Awarded")

	_, _, err = c.exec("move", trackedID, "next")
	assert.ErrorIs(t, err, kanban.ErrTerminal)

	out, _, err = c.exec("board")
	require.NoError(t, err)
	assert.Contains(t, out, trackedID)
	assert.Contains(t, out, "Awarded (1)")

	_, errOut, err = c.exec("untrack", trackedID)
	require.NoError(t, err)
	assert.Contains(t, errOut, "Removed from tracking")

	out, _, err = c.exec("board")
	require.NoError(t, err)
	assert.NotContains(t, out, trackedID)
}

func TestTrackUnknownOpportunity(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.exec("track", "does-not-exist")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCatalogFilters(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.exec("catalog", "--category", "grant")
	require.NoError(t, err)
	assert.Contains(t, out, "sisfs")
	assert.NotContains(t, out, "meity-samridh")

	out, _, err = c.exec("catalog", "-q", "SEED FUND")
	require.NoError(t, err)
	assert.Contains(t, out, "sisfs")
	assert.Contains(t, strings.ToLower(out), "1 opportunities")

	_, _, err = c.exec("catalog", "--category", "loans")
	assert.Error(t, err)
}

func TestBookmarkToggle(t *testing.T) {
	c := newCLI(t)

	_, errOut, err := c.exec("bookmark", "sisfs")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Added to bookmarks")

	out, _, err := c.exec("bookmark", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "sisfs")

	out, _, err = c.exec("show", "sisfs")
	require.NoError(t, err)
	assert.Contains(t, out, "Startup India Seed Fund Scheme")
	assert.Contains(t, out, "Bookmarked:")

	_, errOut, err = c.exec("bookmark", "sisfs")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Removed from bookmarks")
}

func TestProfileSetKeepsUnsetFields(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.exec("profile", "set", "--name", "Acme Security", "--city", "Pune", "--msme")
	require.NoError(t, err)

	out, _, err := c.exec("profile")
	require.NoError(t, err)
	var p models.UserProfile
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Equal(t, "Acme Security", p.BusinessName)
	assert.Equal(t, "Pune", p.Location.City)
	assert.Equal(t, models.DefaultProfile().Location.State, p.Location.State)
	assert.True(t, p.Registrations.MSME)
	assert.Equal(t, models.DefaultProfile().FocusAreas, p.FocusAreas)
}

func TestMatchWithoutProfileName(t *testing.T) {
	c := newCLI(t)
	_, errOut, err := c.exec("match")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "business name")
	assert.Contains(t, errOut, "Please complete your profile first")
}

type scriptedStreamer struct {
	bodies []string
	sent   [][]chat.Message
}

func (s *scriptedStreamer) Stream(ctx context.Context, messages []chat.Message) (io.ReadCloser, error) {
	s.sent = append(s.sent, messages)
	body := s.bodies[0]
	s.bodies = s.bodies[1:]
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestChatLoop(t *testing.T) {
	streamer := &scriptedStreamer{bodies: []string{
		"data: {\"choices\":[{\"delta\":{\"content\":\"Try \"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{\"content\":\"SISFS.\"}}]}\n\n" +
			"data: [DONE]\n\n",
	}}
	session := chat.NewSession(streamer, nil)

	var out bytes.Buffer
	err := chatLoop(context.Background(), session, strings.NewReader("\nfind seed grants\n"), &out)
	require.NoError(t, err)

	assert.Contains(t, out.String(), chat.Greeting)
	assert.Contains(t, out.String(), "> Try SISFS.")
	require.Len(t, streamer.sent, 1)
	assert.Equal(t, []chat.Message{{Role: chat.RoleUser, Content: "find seed grants"}}, streamer.sent[0])

	msgs := session.Transcript().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "Try SISFS.", msgs[2].Content)
}

func TestPrinterFallsBackOnRewrite(t *testing.T) {
	var buf bytes.Buffer
	p := &printer{w: &buf}
	p.update(chat.Message{Content: "Hel"})
	p.update(chat.Message{Content: "Hello"})
	p.update(chat.Message{Content: chat.FallbackReply})
	assert.Equal(t, "Hello\n"+chat.FallbackReply, buf.String())
}

func TestDeadlinesRejectsBadWindow(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.exec("deadlines", "--days", "0")
	require.Error(t, err)

	out, _, err := c.exec("deadlines", "--days", "3650")
	require.NoError(t, err)
	assert.Contains(t, out, "DAYS LEFT")
}
