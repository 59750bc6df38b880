// Package anthropic implements the provider interface over the
// Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/taskmith/taskmith/provider"
	"github.com/taskmith/taskmith/schema"
)

// Name is the provider id used in configuration.
const Name = "anthropic"

const defaultTimeout = 2 * time.Minute

// Client calls the Anthropic Messages API. The API key travels on each
// request, so one client serves calls under different credentials.
type Client struct {
	sdk sdk.Client
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL string
	timeout time.Duration
}

// WithBaseURL overrides the API endpoint, e.g. for a proxy.
func WithBaseURL(u string) ClientOption {
	return func(c *clientConfig) { c.baseURL = u }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

// NewClient creates an Anthropic client.
func NewClient(opts ...ClientOption) *Client {
	cfg := clientConfig{timeout: defaultTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	sdkOpts := []option.RequestOption{option.WithRequestTimeout(cfg.timeout)}
	if cfg.baseURL != "" {
		sdkOpts = append(sdkOpts, option.WithBaseURL(cfg.baseURL))
	}
	return &Client{sdk: sdk.NewClient(sdkOpts...)}
}

// GenerateText implements provider.Client.
func (c *Client) GenerateText(ctx context.Context, req provider.Request) (*provider.Response, error) {
	start := time.Now()

	params, keyOpt, err := c.buildParams(req)
	if err != nil {
		return nil, provider.NewError(Name, "generateText", err, false)
	}

	msg, err := c.sdk.Messages.New(ctx, params, keyOpt)
	if err != nil {
		return nil, wrapAPIError("generateText", err)
	}

	return &provider.Response{
		Content:      textContent(msg),
		Model:        string(msg.Model),
		FinishReason: finishReason(msg.StopReason),
		Usage:        usageOf(msg.Usage),
		Duration:     time.Since(start),
	}, nil
}

// StreamText implements provider.Client.
func (c *Client) StreamText(ctx context.Context, req provider.Request) (<-chan provider.StreamChunk, error) {
	params, keyOpt, err := c.buildParams(req)
	if err != nil {
		return nil, provider.NewError(Name, "streamText", err, false)
	}

	stream := c.sdk.Messages.NewStreaming(ctx, params, keyOpt)
	ch := make(chan provider.StreamChunk)

	go func() {
		defer close(ch)

		acc := sdk.Message{}
		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				ch <- provider.StreamChunk{Error: wrapAPIError("streamText", err)}
				return
			}
			switch ev := event.AsAny().(type) {
			case sdk.ContentBlockDeltaEvent:
				if delta, ok := ev.Delta.AsAny().(sdk.TextDelta); ok && delta.Text != "" {
					select {
					case ch <- provider.StreamChunk{Content: delta.Text}:
					case <-ctx.Done():
						ch <- provider.StreamChunk{Error: ctx.Err()}
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			ch <- provider.StreamChunk{Error: wrapAPIError("streamText", err)}
			return
		}

		usage := usageOf(acc.Usage)
		ch <- provider.StreamChunk{Done: true, Usage: &usage}
	}()

	return ch, nil
}

// GenerateObject implements provider.Client. The schema is embedded in
// the system prompt; the response text is parsed with balanced-bracket
// extraction and validated before being returned.
func (c *Client) GenerateObject(ctx context.Context, req provider.ObjectRequest) (*provider.ObjectResponse, error) {
	start := time.Now()

	textReq := req.Request
	textReq.Messages = withSchemaInstruction(req)

	resp, err := c.GenerateText(ctx, textReq)
	if err != nil {
		return nil, err
	}

	obj, err := schema.ExtractObject(resp.Content)
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
		Model:    resp.Model,
		Usage:    resp.Usage,
		Duration: time.Since(start),
	}, nil
}

// Provider implements provider.Client.
func (c *Client) Provider() string { return Name }

// Close implements provider.Client.
func (c *Client) Close() error { return nil }

// buildParams converts a provider request into SDK message params and
// the per-call credential option.
func (c *Client) buildParams(req provider.Request) (sdk.MessageNewParams, option.RequestOption, error) {
	if req.APIKey == nil || *req.APIKey == "" {
		return sdk.MessageNewParams{}, nil, provider.ErrAPIKeyMissing
	}
	if req.Model == "" {
		return sdk.MessageNewParams{}, nil, fmt.Errorf("%w: model is required", provider.ErrInvalidRequest)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: int64(maxTokens),
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}

	for _, m := range req.Messages {
		switch m.Role {
		case provider.RoleSystem:
			params.System = append(params.System, sdk.TextBlockParam{Text: m.Content})
		case provider.RoleAssistant:
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}

	return params, option.WithAPIKey(*req.APIKey), nil
}

// textContent concatenates the text blocks of a message.
func textContent(msg *sdk.Message) string {
	var b strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(sdk.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	return b.String()
}

func usageOf(u sdk.Usage) provider.TokenUsage {
	return provider.TokenUsage{
		InputTokens:  int(u.InputTokens),
		OutputTokens: int(u.OutputTokens),
		TotalTokens:  int(u.InputTokens + u.OutputTokens),
	}
}

func finishReason(reason sdk.StopReason) string {
	switch reason {
	case sdk.StopReasonEndTurn:
		return "stop"
	case sdk.StopReasonMaxTokens:
		return "length"
	default:
		return string(reason)
	}
}

// wrapAPIError maps SDK and transport failures onto the provider error
// taxonomy so the retry controller can classify them.
func wrapAPIError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return provider.NewError(Name, op, fmt.Errorf("%w: %v", provider.ErrTimeout, err), true)
	}
	if errors.Is(err, context.Canceled) {
		return provider.NewError(Name, op, err, false)
	}

	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		switch apierr.StatusCode {
		case 401, 403:
			return provider.NewError(Name, op, fmt.Errorf("%w: %v", provider.ErrAPIKeyMissing, err), false)
		case 429:
			return provider.NewError(Name, op, fmt.Errorf("%w: %v", provider.ErrRateLimited, err), true)
		case 529:
			return provider.NewError(Name, op, fmt.Errorf("%w: %v", provider.ErrOverloaded, err), true)
		case 500, 502, 503, 504:
			return provider.NewError(Name, op, fmt.Errorf("%w: %v", provider.ErrUnavailable, err), true)
		}
		return provider.NewError(Name, op, err, false)
	}

	// Transport-level failures (connection reset, refused) are transient.
	return provider.NewError(Name, op, err, provider.IsRetryable(err))
}

// withSchemaInstruction appends the JSON-only instruction and schema to
// the message list's system turn.
func withSchemaInstruction(req provider.ObjectRequest) []provider.Message {
	name := req.ObjectName
	if name == "" {
		name = "result"
	}
	instruction := fmt.Sprintf(
		"Respond with a single JSON object named %q matching this JSON Schema, with no surrounding prose or code fences:\n\n%s",
		name, string(req.Schema))

	out := make([]provider.Message, 0, len(req.Messages)+1)
	out = append(out, req.Messages...)
	return append(out, provider.NewTextMessage(provider.RoleSystem, instruction))
}
