// Package claudecli implements the provider interface by shelling out
// to an already-authenticated claude CLI binary. No API key is needed;
// the CLI carries its own credentials, so the availability gate admits
// this provider without a key check.
package claudecli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/taskmith/taskmith/provider"
	"github.com/taskmith/taskmith/schema"
)

// Name is the provider id used in configuration.
const Name = "claude-cli"

const (
	defaultBinary  = "claude"
	defaultTimeout = 5 * time.Minute
)

// CLI flags for non-interactive use.
const (
	flagPrint              = "--print"
	flagOutputFormat       = "--output-format"
	flagModel              = "--model"
	flagAppendSystemPrompt = "--append-system-prompt"
	flagVerbose            = "--verbose"

	formatJSON       = "json"
	formatStreamJSON = "stream-json"
)

// Client runs one claude CLI process per call.
type Client struct {
	binary  string
	workdir string
	timeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBinary sets the path to the claude binary.
func WithBinary(path string) ClientOption {
	return func(c *Client) { c.binary = path }
}

// WithWorkdir sets the working directory for CLI invocations.
func WithWorkdir(dir string) ClientOption {
	return func(c *Client) { c.workdir = dir }
}

// WithTimeout bounds each CLI invocation.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a claude CLI client. The binary is resolved from
// PATH unless overridden.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		binary:  defaultBinary,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// cliResult is the JSON document the CLI prints with --output-format json.
type cliResult struct {
	Type       string `json:"type"`
	Subtype    string `json:"subtype"`
	IsError    bool   `json:"is_error"`
	Result     string `json:"result"`
	DurationMS int    `json:"duration_ms"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// streamEvent is one line of --output-format stream-json output.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// GenerateText implements provider.Client.
func (c *Client) GenerateText(ctx context.Context, req provider.Request) (*provider.Response, error) {
	start := time.Now()

	out, err := c.runOnce(ctx, "generateText", req, "")
	if err != nil {
		return nil, err
	}

	var result cliResult
	if err := json.Unmarshal(out, &result); err != nil {
		// Older CLI builds print bare text for some outputs.
		return &provider.Response{
			Content:      strings.TrimSpace(string(out)),
			Model:        req.Model,
			FinishReason: "stop",
			Duration:     time.Since(start),
		}, nil
	}
	if result.IsError {
		return nil, provider.NewError(Name, "generateText",
			fmt.Errorf("cli reported %s: %s", result.Subtype, result.Result), false)
	}

	return &provider.Response{
		Content:      result.Result,
		Model:        req.Model,
		FinishReason: "stop",
		Usage: provider.TokenUsage{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
			TotalTokens:  result.Usage.InputTokens + result.Usage.OutputTokens,
		},
		Duration: time.Since(start),
	}, nil
}

// StreamText implements provider.Client using stream-json output.
func (c *Client) StreamText(ctx context.Context, req provider.Request) (<-chan provider.StreamChunk, error) {
	args, prompt := c.buildArgs(req, formatStreamJSON, "")
	args = append(args, flagVerbose)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	cmd.Stdin = strings.NewReader(prompt)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, provider.NewError(Name, "streamText", err, false)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, provider.NewError(Name, "streamText", fmt.Errorf("start %s: %w", c.binary, err), false)
	}

	ch := make(chan provider.StreamChunk)
	go func() {
		defer close(ch)

		var usage provider.TokenUsage
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			var event streamEvent
			if err := json.Unmarshal([]byte(line), &event); err != nil {
				continue
			}
			switch event.Type {
			case "content_block_delta":
				if event.Delta.Type == "text_delta" && event.Delta.Text != "" {
					select {
					case ch <- provider.StreamChunk{Content: event.Delta.Text}:
					case <-ctx.Done():
						cmd.Wait()
						ch <- provider.StreamChunk{Error: ctx.Err()}
						return
					}
				}
			case "message_stop":
				usage = provider.TokenUsage{
					InputTokens:  event.Usage.InputTokens,
					OutputTokens: event.Usage.OutputTokens,
					TotalTokens:  event.Usage.InputTokens + event.Usage.OutputTokens,
				}
			}
		}

		if err := cmd.Wait(); err != nil {
			ch <- provider.StreamChunk{Error: wrapRunError("streamText", ctx, err, stderr.String())}
			return
		}
		ch <- provider.StreamChunk{Done: true, Usage: &usage}
	}()

	return ch, nil
}

// GenerateObject implements provider.Client. The schema rides in an
// appended system prompt; the printed result is parsed with balanced
// extraction and validated.
func (c *Client) GenerateObject(ctx context.Context, req provider.ObjectRequest) (*provider.ObjectResponse, error) {
	start := time.Now()

	name := req.ObjectName
	if name == "" {
		name = "result"
	}
	instruction := fmt.Sprintf(
		"Respond with a single JSON object named %q matching this JSON Schema, with no surrounding prose or code fences:\n\n%s",
		name, string(req.Schema))

	resp, err := c.generateWithSystem(ctx, req.Request, instruction, start)
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

// Close implements provider.Client. Each invocation is independent.
func (c *Client) Close() error { return nil }

func (c *Client) generateWithSystem(ctx context.Context, req provider.Request, extraSystem string, start time.Time) (*provider.Response, error) {
	out, err := c.runOnce(ctx, "generateObject", req, extraSystem)
	if err != nil {
		return nil, err
	}

	var result cliResult
	if err := json.Unmarshal(out, &result); err != nil {
		return &provider.Response{Content: strings.TrimSpace(string(out)), Model: req.Model, Duration: time.Since(start)}, nil
	}
	if result.IsError {
		return nil, provider.NewError(Name, "generateObject",
			fmt.Errorf("cli reported %s: %s", result.Subtype, result.Result), false)
	}
	return &provider.Response{
		Content: result.Result,
		Model:   req.Model,
		Usage: provider.TokenUsage{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
			TotalTokens:  result.Usage.InputTokens + result.Usage.OutputTokens,
		},
		Duration: time.Since(start),
	}, nil
}

// runOnce executes one CLI invocation and returns its stdout.
func (c *Client) runOnce(ctx context.Context, op string, req provider.Request, extraSystem string) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args, prompt := c.buildArgs(req, formatJSON, extraSystem)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	if c.workdir != "" {
		cmd.Dir = c.workdir
	}
	cmd.Stdin = strings.NewReader(prompt)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, wrapRunError(op, ctx, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// buildArgs assembles CLI arguments. System turns go through the
// append-system-prompt flag; the remaining conversation is written to
// stdin as the prompt.
func (c *Client) buildArgs(req provider.Request, format, extraSystem string) (args []string, prompt string) {
	args = append(args, flagPrint, flagOutputFormat, format)
	if req.Model != "" {
		args = append(args, flagModel, req.Model)
	}

	var system, conversation strings.Builder
	for _, m := range req.Messages {
		switch m.Role {
		case provider.RoleSystem:
			if system.Len() > 0 {
				system.WriteString("\n\n")
			}
			system.WriteString(m.Content)
		case provider.RoleAssistant:
			conversation.WriteString("Assistant: ")
			conversation.WriteString(m.Content)
			conversation.WriteString("\n\n")
		default:
			conversation.WriteString(m.Content)
			conversation.WriteString("\n\n")
		}
	}
	if extraSystem != "" {
		if system.Len() > 0 {
			system.WriteString("\n\n")
		}
		system.WriteString(extraSystem)
	}
	if system.Len() > 0 {
		args = append(args, flagAppendSystemPrompt, system.String())
	}

	return args, strings.TrimSpace(conversation.String())
}

// maxStderrLength bounds stderr included in error messages.
const maxStderrLength = 500

// wrapRunError classifies a CLI failure.
func wrapRunError(op string, ctx context.Context, err error, stderr string) error {
	if ctx.Err() != nil {
		return provider.NewError(Name, op, fmt.Errorf("%w: %v", provider.ErrTimeout, ctx.Err()), true)
	}

	stderr = strings.TrimSpace(stderr)
	if len(stderr) > maxStderrLength {
		stderr = stderr[:maxStderrLength] + "... (truncated)"
	}
	combined := fmt.Errorf("%w: %s", err, stderr)
	return provider.NewError(Name, op, combined, provider.IsRetryable(combined))
}
