// Package perplexity implements the provider interface over the
// Perplexity chat completions API (OpenAI-compatible wire format).
package perplexity

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/taskmith/taskmith/provider"
	"github.com/taskmith/taskmith/schema"
)

// Name is the provider id used in configuration.
const Name = "perplexity"

const (
	defaultBaseURL = "https://api.perplexity.ai"
	defaultTimeout = 2 * time.Minute
)

// Client calls the Perplexity chat completions endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates a Perplexity client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Wire types for the chat completions endpoint.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		Delta        chatMessage `json:"delta"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// GenerateText implements provider.Client.
func (c *Client) GenerateText(ctx context.Context, req provider.Request) (*provider.Response, error) {
	start := time.Now()

	body, err := c.post(ctx, "generateText", req, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, provider.NewError(Name, "generateText", fmt.Errorf("decode response: %w", err), false)
	}
	if len(parsed.Choices) == 0 {
		return nil, provider.NewError(Name, "generateText", errors.New("response has no choices"), false)
	}

	return &provider.Response{
		Content:      parsed.Choices[0].Message.Content,
		Model:        parsed.Model,
		FinishReason: parsed.Choices[0].FinishReason,
		Usage: provider.TokenUsage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		},
		Duration: time.Since(start),
	}, nil
}

// StreamText implements provider.Client. The endpoint streams
// server-sent events; each data line carries a delta chunk.
func (c *Client) StreamText(ctx context.Context, req provider.Request) (<-chan provider.StreamChunk, error) {
	body, err := c.post(ctx, "streamText", req, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)
		defer body.Close()

		var usage *provider.TokenUsage
		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if payload == "" || payload == "[DONE]" {
				continue
			}

			var event chatResponse
			if err := json.Unmarshal([]byte(payload), &event); err != nil {
				continue
			}
			if event.Usage.TotalTokens > 0 {
				usage = &provider.TokenUsage{
					InputTokens:  event.Usage.PromptTokens,
					OutputTokens: event.Usage.CompletionTokens,
					TotalTokens:  event.Usage.TotalTokens,
				}
			}
			if len(event.Choices) > 0 && event.Choices[0].Delta.Content != "" {
				select {
				case ch <- provider.StreamChunk{Content: event.Choices[0].Delta.Content}:
				case <-ctx.Done():
					ch <- provider.StreamChunk{Error: ctx.Err()}
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			ch <- provider.StreamChunk{Error: provider.NewError(Name, "streamText", err, true)}
			return
		}
		ch <- provider.StreamChunk{Done: true, Usage: usage}
	}()

	return ch, nil
}

// GenerateObject implements provider.Client via schema-in-prompt plus
// extraction and validation, the same contract as the other remote
// providers.
func (c *Client) GenerateObject(ctx context.Context, req provider.ObjectRequest) (*provider.ObjectResponse, error) {
	start := time.Now()

	name := req.ObjectName
	if name == "" {
		name = "result"
	}
	instruction := fmt.Sprintf(
		"Respond with a single JSON object named %q matching this JSON Schema, with no surrounding prose or code fences:\n\n%s",
		name, string(req.Schema))

	textReq := req.Request
	textReq.Messages = append(append([]provider.Message{}, req.Messages...),
		provider.NewTextMessage(provider.RoleSystem, instruction))

	resp, err := c.GenerateText(ctx, textReq)
	if err != nil {
		return nil, err
	}

	obj, err := schema.ExtractObject(resp.Content)
	if err != nil {
		return nil, provider.NewError(Name, "generateObject", err, false)
	}
	sch, err := schema.FromJSON(name, req.Schema)
	if err != nil {
		return nil, provider.NewError(Name, "generateObject", err, false)
	}
	if err := sch.Validate(obj); err != nil {
		return nil, provider.NewError(Name, "generateObject", err, false)
	}

	return &provider.ObjectResponse{
		Object:   obj,
		Model:    resp.Model,
		Usage:    resp.Usage,
		Duration: time.Since(start),
	}, nil
}

// Provider implements provider.Client.
func (c *Client) Provider() string { return Name }

// Close implements provider.Client.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// post sends a chat completions request and returns the response body.
// Non-2xx statuses are mapped onto the provider error taxonomy.
func (c *Client) post(ctx context.Context, op string, req provider.Request, stream bool) (io.ReadCloser, error) {
	if req.APIKey == nil || *req.APIKey == "" {
		return nil, provider.NewError(Name, op, provider.ErrAPIKeyMissing, false)
	}
	if req.Model == "" {
		return nil, provider.NewError(Name, op, fmt.Errorf("%w: model is required", provider.ErrInvalidRequest), false)
	}

	wire := chatRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	for _, m := range req.Messages {
		wire.Messages = append(wire.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, provider.NewError(Name, op, err, false)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, provider.NewError(Name, op, err, false)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+*req.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, provider.NewError(Name, op, fmt.Errorf("%w: %v", provider.ErrTimeout, err), true)
		}
		return nil, provider.NewError(Name, op, err, provider.IsRetryable(err))
	}

	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		return nil, statusError(op, resp)
	}
	return resp.Body, nil
}

// statusError converts a non-2xx response into a classified error.
func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	detail := strings.TrimSpace(string(raw))
	var parsed apiErrorBody
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		detail = parsed.Error.Message
	}

	var sentinel error
	retryable := false
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = provider.ErrAPIKeyMissing
	case http.StatusTooManyRequests:
		sentinel, retryable = provider.ErrRateLimited, true
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout, http.StatusInternalServerError:
		sentinel, retryable = provider.ErrUnavailable, true
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		sentinel = provider.ErrInvalidRequest
	default:
		sentinel = fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return provider.NewError(Name, op, fmt.Errorf("%w: %s", sentinel, detail), retryable)
}
