package claudecli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmith/taskmith/provider"
)

// fakeBinary writes an executable shell script standing in for the
// claude CLI and returns its path.
func fakeBinary(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "claude")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestRegistered_CredentialFree(t *testing.T) {
	d, ok := provider.Lookup(Name)
	require.True(t, ok)
	assert.False(t, d.RequiresAPIKey)
}

func TestGenerateText(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	stdinFile := filepath.Join(dir, "stdin")

	bin := fakeBinary(t, fmt.Sprintf(`printf '%%s\n' "$@" > %s
cat > %s
echo '{"type":"result","subtype":"success","is_error":false,"result":"answer from cli","duration_ms":120,"usage":{"input_tokens":40,"output_tokens":9}}'
`, argsFile, stdinFile))

	c := NewClient(WithBinary(bin))
	resp, err := c.GenerateText(context.Background(), provider.Request{
		Model: "claude-sonnet-4-20250514",
		Messages: []provider.Message{
			provider.NewTextMessage(provider.RoleSystem, "stay terse"),
			provider.NewTextMessage(provider.RoleUser, "what is up"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "answer from cli", resp.Content)
	assert.Equal(t, 40, resp.Usage.InputTokens)
	assert.Equal(t, 49, resp.Usage.TotalTokens)
	assert.Equal(t, "stop", resp.FinishReason)

	args, readErr := os.ReadFile(argsFile)
	require.NoError(t, readErr)
	lines := strings.Split(strings.TrimSpace(string(args)), "\n")
	assert.Contains(t, lines, "--print")
	assert.Contains(t, lines, "--output-format")
	assert.Contains(t, lines, "json")
	assert.Contains(t, lines, "claude-sonnet-4-20250514")
	assert.Contains(t, lines, "stay terse")

	stdin, readErr := os.ReadFile(stdinFile)
	require.NoError(t, readErr)
	assert.Equal(t, "what is up", strings.TrimSpace(string(stdin)))
}

func TestGenerateText_CLIReportsError(t *testing.T) {
	bin := fakeBinary(t, `cat > /dev/null
echo '{"type":"result","subtype":"error_during_execution","is_error":true,"result":"model refused"}'
`)

	c := NewClient(WithBinary(bin))
	_, err := c.GenerateText(context.Background(), provider.Request{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error_during_execution")
	assert.Contains(t, err.Error(), "model refused")
}

func TestGenerateText_ExitFailureIncludesStderr(t *testing.T) {
	bin := fakeBinary(t, `cat > /dev/null
echo "not logged in" >&2
exit 1
`)

	c := NewClient(WithBinary(bin))
	_, err := c.GenerateText(context.Background(), provider.Request{Model: "m"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestGenerateText_BareTextFallback(t *testing.T) {
	bin := fakeBinary(t, `cat > /dev/null
echo "plain text output"
`)

	c := NewClient(WithBinary(bin))
	resp, err := c.GenerateText(context.Background(), provider.Request{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "plain text output", resp.Content)
}

func TestGenerateText_Timeout(t *testing.T) {
	bin := fakeBinary(t, `cat > /dev/null
sleep 5
`)

	c := NewClient(WithBinary(bin), WithTimeout(50*time.Millisecond))
	_, err := c.GenerateText(context.Background(), provider.Request{Model: "m"})
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrTimeout)
	assert.True(t, provider.IsRetryable(err))
}

func TestStreamText(t *testing.T) {
	bin := fakeBinary(t, `cat > /dev/null
echo '{"type":"content_block_delta","delta":{"type":"text_delta","text":"Hello "}}'
echo '{"type":"content_block_delta","delta":{"type":"text_delta","text":"world"}}'
echo '{"type":"message_stop","usage":{"input_tokens":3,"output_tokens":2}}'
`)

	c := NewClient(WithBinary(bin))
	ch, err := c.StreamText(context.Background(), provider.Request{Model: "m"})
	require.NoError(t, err)

	var content string
	var usage *provider.TokenUsage
	for chunk := range ch {
		require.NoError(t, chunk.Error)
		content += chunk.Content
		if chunk.Done {
			usage = chunk.Usage
		}
	}
	assert.Equal(t, "Hello world", content)
	require.NotNil(t, usage)
	assert.Equal(t, 5, usage.TotalTokens)
}

func TestGenerateObject(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")

	bin := fakeBinary(t, fmt.Sprintf(`printf '%%s\n' "$@" > %s
cat > /dev/null
printf '%%s\n' '{"type":"result","subtype":"success","is_error":false,"result":"Sure: {\"tasks\": []}","usage":{"input_tokens":8,"output_tokens":4}}'
`, argsFile))

	c := NewClient(WithBinary(bin))
	resp, err := c.GenerateObject(context.Background(), provider.ObjectRequest{
		Request:    provider.Request{Model: "m", Messages: []provider.Message{provider.NewTextMessage(provider.RoleUser, "go")}},
		Schema:     []byte(`{"type":"object","required":["tasks"]}`),
		ObjectName: "tasks",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"tasks": []}`, string(resp.Object))

	// The schema instruction travels in the appended system prompt.
	args, readErr := os.ReadFile(argsFile)
	require.NoError(t, readErr)
	assert.Contains(t, string(args), "JSON Schema")
}

func TestGenerateObject_SchemaViolation(t *testing.T) {
	bin := fakeBinary(t, `cat > /dev/null
printf '%s\n' '{"type":"result","subtype":"success","is_error":false,"result":"{\"wrong\": true}"}'
`)

	c := NewClient(WithBinary(bin))
	_, err := c.GenerateObject(context.Background(), provider.ObjectRequest{
		Request:    provider.Request{Model: "m"},
		Schema:     []byte(`{"type":"object","required":["tasks"]}`),
		ObjectName: "tasks",
	})
	assert.ErrorIs(t, err, provider.ErrSchemaValidation)
	assert.True(t, provider.IsContentError(err))
}
