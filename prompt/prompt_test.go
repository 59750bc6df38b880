package prompt

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_BuiltinUserPrompt(t *testing.T) {
	e := NewEngine()

	out, err := e.Render(GenerateTasksUser, map[string]any{
		"NumTasks":   3,
		"Overview":   "A CLI for notes.",
		"PriorTasks": "",
		"GroupName":  "Storage",
		"Content":    "## Storage\nSave notes as files.",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Generate 3 implementation tasks")
	assert.Contains(t, out, "A CLI for notes.")
	assert.Contains(t, out, `("Storage")`)
	assert.Contains(t, out, "Save notes as files.")
	assert.NotContains(t, out, "already defined", "empty prior-task block must be omitted")
}

func TestRender_SystemPromptResearchVariant(t *testing.T) {
	e := NewEngine()
	vars := map[string]any{
		"Schema":   `{"type":"object"}`,
		"NumTasks": 5,
		"StartID":  7,
		"Research": true,
	}

	out, err := e.Render(GenerateTasksSystem, vars)
	require.NoError(t, err)
	assert.Contains(t, out, "starting at 7")
	assert.Contains(t, out, "widely adopted tooling")

	vars["Research"] = false
	out, err = e.Render(GenerateTasksSystem, vars)
	require.NoError(t, err)
	assert.NotContains(t, out, "widely adopted tooling")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, err := NewEngine().Render("no-such-prompt", nil)
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestRenderText_Errors(t *testing.T) {
	e := NewEngine()

	_, err := e.RenderText("", nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = e.RenderText("{{.Broken", nil)
	assert.ErrorIs(t, err, ErrParse)

	_, err = e.RenderText("{{.Missing}}", map[string]any{})
	assert.ErrorIs(t, err, ErrExecute)
}

func TestRenderText_Funcs(t *testing.T) {
	e := NewEngine()

	out, err := e.RenderText(`{{default .Name "anonymous"}}: {{indent .Body 2}}`, map[string]any{
		"Name": "",
		"Body": "a\nb",
	})
	require.NoError(t, err)
	assert.Equal(t, "anonymous:   a\n  b", out)
}

func TestLoadOverrides_ShadowsBuiltin(t *testing.T) {
	dir := t.TempDir()
	promptsDir := filepath.Join(dir, "prompts")
	require.NoError(t, os.MkdirAll(promptsDir, 0o755))
	override := "custom for {{.NumTasks}} tasks"
	require.NoError(t, os.WriteFile(filepath.Join(promptsDir, GenerateTasksUser+".tmpl"), []byte(override), 0o644))

	e := NewEngine()
	require.NoError(t, e.LoadOverrides(dir))

	out, err := e.Render(GenerateTasksUser, map[string]any{"NumTasks": 4})
	require.NoError(t, err)
	assert.Equal(t, "custom for 4 tasks", out)
}

func TestLoadOverrides_MissingDirIsFine(t *testing.T) {
	e := NewEngine()
	assert.NoError(t, e.LoadOverrides(filepath.Join(t.TempDir(), "nope")))
	assert.NoError(t, e.LoadOverrides(""))
}

func TestValidateVariables(t *testing.T) {
	err := ValidateVariables([]string{"a", "b"}, map[string]any{"a": 1})
	if !errors.Is(err, ErrVariable) || !strings.Contains(err.Error(), "b") {
		t.Errorf("ValidateVariables error = %v", err)
	}
}
