package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to the service's chat relay endpoint.
type Client struct {
	URL        string
	Token      string
	HTTPClient *http.Client
}

func NewClient(url, token string) *Client {
	return &Client{
		URL:   url,
		Token: token,
		// No overall timeout: a streamed reply may legitimately run long.
		HTTPClient: &http.Client{Transport: &http.Transport{ResponseHeaderTimeout: 60 * time.Second}},
	}
}

type streamRequest struct {
	Messages []Message `json:"messages"`
}

// Stream posts the conversation and returns the event stream body.
// A non-success status is turned into an error carrying the body's
// "error" field.
func (c *Client) Stream(ctx context.Context, messages []Message) (io.ReadCloser, error) {
	jsonData, err := json.Marshal(streamRequest{Messages: messages})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
		msg := strings.TrimSpace(body.Error)
		if msg == "" {
			msg = "Failed to get response"
		}
		return nil, &StatusError{Code: resp.StatusCode, Message: msg}
	}
	return resp.Body, nil
}

// StatusError is a non-success reply from the chat endpoint.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat endpoint returned %d: %s", e.Code, e.Message)
}
