package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader returns one chunk per Read call, then err (io.EOF by default).
type chunkReader struct {
	chunks []string
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func (r *chunkReader) Close() error { return nil }

type fakeStreamer struct {
	got  [][]Message
	body *chunkReader
	err  error
}

func (f *fakeStreamer) Stream(_ context.Context, messages []Message) (io.ReadCloser, error) {
	f.got = append(f.got, messages)
	if f.err != nil {
		return nil, f.err
	}
	return f.body, nil
}

func TestSessionSendStreamsReply(t *testing.T) {
	streamer := &fakeStreamer{body: &chunkReader{chunks: []string{
		`data: {"choices":[{"delta":{"content":"Try "}}]}` + "\n" + `data: {"choi`,
		`ces":[{"delta":{"content":"SISFS"}}]}` + "\n",
		"data: [DONE]\n",
	}}}
	s := NewSession(streamer, nil)

	var updates []string
	err := s.Send(context.Background(), "Which seed grants fit?", func(m Message) {
		updates = append(updates, m.Content)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Try ", "Try SISFS"}, updates)

	msgs := s.Transcript().Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, Message{Role: RoleUser, Content: "Which seed grants fit?"}, msgs[1])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "Try SISFS"}, msgs[2])

	require.Len(t, streamer.got, 1)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "Which seed grants fit?"}}, streamer.got[0], "greeting is not sent")
}

func TestSessionSecondTurnStartsNewAssistantMessage(t *testing.T) {
	streamer := &fakeStreamer{body: &chunkReader{chunks: []string{`data: {"choices":[{"delta":{"content":"one"}}]}` + "\n"}}}
	s := NewSession(streamer, nil)
	require.NoError(t, s.Send(context.Background(), "first", nil))

	streamer.body = &chunkReader{chunks: []string{`data: {"choices":[{"delta":{"content":"two"}}]}` + "\n"}}
	require.NoError(t, s.Send(context.Background(), "second", nil))

	msgs := s.Transcript().Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, "one", msgs[2].Content)
	assert.Equal(t, "two", msgs[4].Content)
	assert.Len(t, streamer.got[1], 3)
}

func TestSessionFallbackOnOpenError(t *testing.T) {
	streamer := &fakeStreamer{err: &StatusError{Code: 429, Message: "Rate limit exceeded. Please try again later."}}
	s := NewSession(streamer, nil)

	err := s.Send(context.Background(), "hi", nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 429, se.Code)

	msgs := s.Transcript().Messages()
	assert.Equal(t, FallbackReply, msgs[len(msgs)-1].Content)
}

func TestSessionKeepsPartialContentOnReadError(t *testing.T) {
	boom := errors.New("connection reset")
	streamer := &fakeStreamer{body: &chunkReader{
		chunks: []string{`data: {"choices":[{"delta":{"content":"partial"}}]}` + "\n"},
		err:    boom,
	}}
	s := NewSession(streamer, nil)

	err := s.Send(context.Background(), "hi", nil)
	require.ErrorIs(t, err, boom)

	msgs := s.Transcript().Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "partial", msgs[2].Content)
	assert.Equal(t, FallbackReply, msgs[3].Content)
}

func TestSessionIgnoresBlankInput(t *testing.T) {
	streamer := &fakeStreamer{}
	s := NewSession(streamer, nil)
	require.NoError(t, s.Send(context.Background(), "   ", nil))
	assert.Empty(t, streamer.got)
	assert.Len(t, s.Transcript().Messages(), 1)
}

func TestClientStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req streamRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if len(req.Messages) == 0 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Rate limit exceeded. Please try again later."}`))
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(`data: {"choices":[{"delta":{"content":"hey"}}]}` + "\n\ndata: [DONE]\n\n"))
	}))
	defer srv.Close()

	c := &Client{URL: srv.URL, Token: "tok", HTTPClient: srv.Client()}

	body, err := c.Stream(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	a := feedAll(string(raw))
	assert.Equal(t, "hey", a.Content())

	_, err = c.Stream(context.Background(), nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
	assert.Equal(t, "Rate limit exceeded. Please try again later.", se.Message)
}
