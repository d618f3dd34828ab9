package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/david/grantai/internal/ai"
)

const relayBufferSize = 4096

type chatRequest struct {
	Messages []ai.Message `json:"messages"`
}

// handleChat relays the upstream completion stream to the client unchanged,
// with the assistant system prompt prepended to the caller's transcript.
func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request")
	}
	if len(req.Messages) == 0 {
		return errorJSON(c, http.StatusBadRequest, "messages are required")
	}
	if s.Chat == nil {
		return errorJSON(c, http.StatusInternalServerError, "AI service error. Please try again.")
	}

	ctx := c.Request().Context()
	body, err := s.Chat.Stream(ctx, ai.WithSystemPrompt(req.Messages))
	if err != nil {
		if errors.Is(err, ai.ErrRateLimited) {
			return errorJSON(c, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		}
		s.Log.Errorf("[Chat] upstream error: %v", err)
		return errorJSON(c, http.StatusInternalServerError, "AI service error. Please try again.")
	}
	defer body.Close()

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	buf := make([]byte, relayBufferSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				s.Log.Debugf("[Chat] client went away: %v", err)
				return nil
			}
			w.Flush()
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			if ctx.Err() == nil {
				s.Log.Warnf("[Chat] upstream stream broke: %v", readErr)
			}
			return nil
		}
	}
}
