package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNotConfigured    = errors.New("ai gateway is not configured")
	ErrRateLimited      = errors.New("ai gateway rate limit exceeded")
	ErrCreditsExhausted = errors.New("ai gateway credits exhausted")
)

// StatusError is any other non-success reply from the gateway.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ai gateway returned status: %d", e.Code)
}

// Message is one chat turn sent to the gateway.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer produces a single non-streamed completion.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// Client speaks the OpenAI-compatible chat completions API exposed by
// OpenRouter and similar gateways.
type Client struct {
	BaseURL string
	APIKey  string
	Model   string
	// Headers are added to every request, e.g. HTTP-Referer and X-Title.
	Headers map[string]string

	HTTPClient *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	if model == "" {
		model = "google/gemini-3-flash-preview"
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		Headers:    map[string]string{},
		HTTPClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func configured(llm Completer) bool {
	if llm == nil {
		return false
	}
	if c, ok := llm.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}

func (c *Client) Configured() bool {
	return c != nil && c.APIKey != ""
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) do(ctx context.Context, httpClient *http.Client, messages []Message, stream bool) (*http.Response, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	jsonData, err := json.Marshal(completionRequest{Model: c.Model, Messages: messages, Stream: stream})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ai gateway request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		switch resp.StatusCode {
		case http.StatusTooManyRequests:
			return nil, ErrRateLimited
		case http.StatusPaymentRequired:
			return nil, ErrCreditsExhausted
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return resp, nil
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

// Complete returns the first choice's message content.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.do(ctx, c.httpClient(), messages, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var parsedResp completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsedResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsedResp.Choices) == 0 {
		return "", nil
	}
	return parsedResp.Choices[0].Message.Content, nil
}

// Stream opens a streamed completion and returns the raw event stream.
// The caller must close it.
func (c *Client) Stream(ctx context.Context, messages []Message) (io.ReadCloser, error) {
	// The client-wide timeout would cut long replies short; rely on ctx instead.
	hc := *c.httpClient()
	hc.Timeout = 0
	resp, err := c.do(ctx, &hc, messages, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
