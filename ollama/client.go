// Package ollama implements the provider interface over a local Ollama
// server. Ollama requires no credential; the availability gate admits
// it without a key check.
package ollama

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
const Name = "ollama"

const (
	defaultBaseURL = "http://localhost:11434"

	// Local generation on CPU can be slow; give it room.
	defaultTimeout = 10 * time.Minute
)

// Client calls the Ollama chat API.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at a non-default Ollama server.
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

// NewClient creates an Ollama client.
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

// Wire types for the /api/chat endpoint.
type chatRequest struct {
	Model    string          `json:"model"`
	Messages []chatMessage   `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   json.RawMessage `json:"format,omitempty"`
	Options  *chatOptions    `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model           string      `json:"model"`
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
	Error           string      `json:"error"`
}

// GenerateText implements provider.Client.
func (c *Client) GenerateText(ctx context.Context, req provider.Request) (*provider.Response, error) {
	start := time.Now()

	body, err := c.post(ctx, "generateText", req, nil, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, provider.NewError(Name, "generateText", fmt.Errorf("decode response: %w", err), false)
	}
	if parsed.Error != "" {
		return nil, provider.NewError(Name, "generateText", errors.New(parsed.Error), false)
	}

	return responseOf(parsed, start), nil
}

// StreamText implements provider.Client. Ollama streams newline
// delimited JSON objects, the last of which carries done and counters.
func (c *Client) StreamText(ctx context.Context, req provider.Request) (<-chan provider.StreamChunk, error) {
	body, err := c.post(ctx, "streamText", req, nil, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var event chatResponse
			if err := json.Unmarshal(line, &event); err != nil {
				continue
			}
			if event.Error != "" {
				ch <- provider.StreamChunk{Error: provider.NewError(Name, "streamText", errors.New(event.Error), false)}
				return
			}
			if event.Done {
				usage := usageOf(event)
				ch <- provider.StreamChunk{Done: true, Usage: &usage}
				return
			}
			if event.Message.Content != "" {
				select {
				case ch <- provider.StreamChunk{Content: event.Message.Content}:
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
		ch <- provider.StreamChunk{Done: true}
	}()

	return ch, nil
}

// GenerateObject implements provider.Client. Ollama enforces structured
// output natively via the format field, so the schema constrains
// decoding rather than riding in the prompt; the result is still
// validated before being returned.
func (c *Client) GenerateObject(ctx context.Context, req provider.ObjectRequest) (*provider.ObjectResponse, error) {
	start := time.Now()

	body, err := c.post(ctx, "generateObject", req.Request, req.Schema, false)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(body).Decode(&parsed); err != nil {
		return nil, provider.NewError(Name, "generateObject", fmt.Errorf("decode response: %w", err), false)
	}
	if parsed.Error != "" {
		return nil, provider.NewError(Name, "generateObject", errors.New(parsed.Error), false)
	}

	obj, err := schema.ExtractObject(parsed.Message.Content)
	if err != nil {
		return nil, provider.NewError(Name, "generateObject", err, false)
	}
	sch, err := schema.FromJSON(req.ObjectName, req.Schema)
	if err != nil {
		return nil, provider.NewError(Name, "generateObject", err, false)
	}
	if err := sch.Validate(obj); err != nil {
		return nil, provider.NewError(Name, "generateObject", err, false)
	}

	return &provider.ObjectResponse{
		Object:   obj,
		Model:    parsed.Model,
		Usage:    usageOf(parsed),
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

// post sends a chat request. No credential is attached; a connection
// failure means the local server isn't running.
func (c *Client) post(ctx context.Context, op string, req provider.Request, format json.RawMessage, stream bool) (io.ReadCloser, error) {
	if req.Model == "" {
		return nil, provider.NewError(Name, op, fmt.Errorf("%w: model is required", provider.ErrInvalidRequest), false)
	}

	wire := chatRequest{
		Model:  req.Model,
		Stream: stream,
		Format: format,
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		wire.Options = &chatOptions{Temperature: req.Temperature, NumPredict: req.MaxTokens}
	}
	for _, m := range req.Messages {
		wire.Messages = append(wire.Messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, provider.NewError(Name, op, err, false)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return nil, provider.NewError(Name, op, err, false)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, provider.NewError(Name, op, fmt.Errorf("%w: %v", provider.ErrTimeout, err), true)
		}
		return nil, provider.NewError(Name, op, fmt.Errorf("%w: %v", provider.ErrUnavailable, err), true)
	}

	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(raw))
		if resp.StatusCode == http.StatusNotFound {
			return nil, provider.NewError(Name, op, fmt.Errorf("%w: %s", provider.ErrInvalidRequest, detail), false)
		}
		return nil, provider.NewError(Name, op, fmt.Errorf("%w: status %d: %s", provider.ErrUnavailable, resp.StatusCode, detail), true)
	}
	return resp.Body, nil
}

func responseOf(parsed chatResponse, start time.Time) *provider.Response {
	reason := "stop"
	if parsed.DoneReason == "length" {
		reason = "length"
	}
	return &provider.Response{
		Content:      parsed.Message.Content,
		Model:        parsed.Model,
		FinishReason: reason,
		Usage:        usageOf(parsed),
		Duration:     time.Since(start),
	}
}

func usageOf(parsed chatResponse) provider.TokenUsage {
	return provider.TokenUsage{
		InputTokens:  parsed.PromptEvalCount,
		OutputTokens: parsed.EvalCount,
		TotalTokens:  parsed.PromptEvalCount + parsed.EvalCount,
	}
}
