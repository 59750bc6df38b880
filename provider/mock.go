package provider

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MockClient is a test double for Client.
// It supports fixed responses, sequential responses, per-call errors,
// and custom handlers.
type MockClient struct {
	mu          sync.Mutex
	name        string
	responses   []string
	responseIdx int
	objects     []json.RawMessage
	objectIdx   int
	errs        []error
	errIdx      int

	generateFunc func(ctx context.Context, req Request) (*Response, error)
	objectFunc   func(ctx context.Context, req ObjectRequest) (*ObjectResponse, error)

	// TextCalls and ObjectCalls track all requests for assertions.
	TextCalls   []Request
	ObjectCalls []ObjectRequest
}

// NewMockClient creates a mock that returns a fixed text response.
func NewMockClient(response string) *MockClient {
	return &MockClient{name: "mock", responses: []string{response}}
}

// WithName sets the provider name the mock reports.
func (m *MockClient) WithName(name string) *MockClient {
	m.name = name
	return m
}

// WithResponses configures sequential text responses.
// Cycles back to the beginning after exhausting all responses.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.responses = responses
	return m
}

// WithObjects configures sequential object responses for GenerateObject.
func (m *MockClient) WithObjects(objects ...json.RawMessage) *MockClient {
	m.objects = objects
	return m
}

// WithErrors configures per-call errors. Each call consumes the next
// error in the list; a nil entry means that call succeeds. After the
// list is exhausted, calls succeed.
func (m *MockClient) WithErrors(errs ...error) *MockClient {
	m.errs = errs
	return m
}

// WithGenerateFunc sets a custom handler for GenerateText calls.
// This takes precedence over fixed responses.
func (m *MockClient) WithGenerateFunc(fn func(ctx context.Context, req Request) (*Response, error)) *MockClient {
	m.generateFunc = fn
	return m
}

// WithObjectFunc sets a custom handler for GenerateObject calls.
func (m *MockClient) WithObjectFunc(fn func(ctx context.Context, req ObjectRequest) (*ObjectResponse, error)) *MockClient {
	m.objectFunc = fn
	return m
}

// nextErr pops the next scripted error, if any. Caller must hold mu.
func (m *MockClient) nextErr() error {
	if m.errIdx < len(m.errs) {
		err := m.errs[m.errIdx]
		m.errIdx++
		return err
	}
	return nil
}

// GenerateText implements Client.
func (m *MockClient) GenerateText(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TextCalls = append(m.TextCalls, req)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	if err := m.nextErr(); err != nil {
		return nil, err
	}

	response := ""
	if len(m.responses) > 0 {
		response = m.responses[m.responseIdx%len(m.responses)]
		m.responseIdx++
	}

	return &Response{
		Content:      response,
		Model:        req.Model,
		Usage:        TokenUsage{InputTokens: 10, OutputTokens: len(response) / 4, TotalTokens: 10 + len(response)/4},
		FinishReason: "stop",
		Duration:     10 * time.Millisecond,
	}, nil
}

// StreamText implements Client. The full response is delivered as a
// single chunk followed by the Done chunk.
func (m *MockClient) StreamText(ctx context.Context, req Request) (<-chan StreamChunk, error) {
	resp, err := m.GenerateText(ctx, req)
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk, 2)
	ch <- StreamChunk{Content: resp.Content}
	usage := resp.Usage
	ch <- StreamChunk{Done: true, Usage: &usage}
	close(ch)
	return ch, nil
}

// GenerateObject implements Client.
func (m *MockClient) GenerateObject(ctx context.Context, req ObjectRequest) (*ObjectResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ObjectCalls = append(m.ObjectCalls, req)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if m.objectFunc != nil {
		return m.objectFunc(ctx, req)
	}
	if err := m.nextErr(); err != nil {
		return nil, err
	}

	obj := json.RawMessage(`{}`)
	if len(m.objects) > 0 {
		obj = m.objects[m.objectIdx%len(m.objects)]
		m.objectIdx++
	}

	return &ObjectResponse{
		Object:   obj,
		Model:    req.Model,
		Usage:    TokenUsage{InputTokens: 20, OutputTokens: len(obj) / 4, TotalTokens: 20 + len(obj)/4},
		Duration: 10 * time.Millisecond,
	}, nil
}

// Provider implements Client.
func (m *MockClient) Provider() string { return m.name }

// Close implements Client.
func (m *MockClient) Close() error { return nil }
