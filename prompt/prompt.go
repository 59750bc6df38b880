// Package prompt renders the generation prompts. Built-in templates
// cover the standard task-generation calls; a project can override any
// of them by dropping a file with the same name under
// .taskmith/prompts/.
package prompt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// Rendering errors.
var (
	ErrEmpty    = errors.New("empty template")
	ErrUnknown  = errors.New("unknown prompt template")
	ErrParse    = errors.New("template parse failed")
	ErrExecute  = errors.New("template execution failed")
	ErrVariable = errors.New("missing template variable")
)

// Built-in template names.
const (
	GenerateTasksSystem = "generate-tasks-system"
	GenerateTasksUser   = "generate-tasks-user"
)

// promptsDirName is the per-project override directory, relative to
// the configuration directory.
const promptsDirName = "prompts"

// Engine renders named prompt templates. Built-in templates are always
// available; project overrides shadow them by name.
type Engine struct {
	funcs     template.FuncMap
	overrides map[string]string
}

// NewEngine creates an engine with the built-in templates and helper
// functions.
func NewEngine() *Engine {
	return &Engine{
		funcs:     defaultFuncs(),
		overrides: map[string]string{},
	}
}

// LoadOverrides reads project prompt overrides from
// <configDir>/prompts/*.tmpl. A missing directory is not an error.
func (e *Engine) LoadOverrides(configDir string) error {
	if configDir == "" {
		return nil
	}
	dir := filepath.Join(configDir, promptsDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading prompt overrides: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".tmpl") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("reading prompt override %s: %w", name, err)
		}
		e.overrides[strings.TrimSuffix(name, ".tmpl")] = string(data)
	}
	return nil
}

// AddFunc registers a custom helper available in templates.
func (e *Engine) AddFunc(name string, fn any) {
	e.funcs[name] = fn
}

// Render executes the named template with the given variables.
// Overrides win over built-ins.
func (e *Engine) Render(name string, vars map[string]any) (string, error) {
	text, ok := e.overrides[name]
	if !ok {
		text, ok = builtins[name]
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	return e.RenderText(text, vars)
}

// RenderText executes an inline template string.
func (e *Engine) RenderText(text string, vars map[string]any) (string, error) {
	if text == "" {
		return "", ErrEmpty
	}

	tmpl, err := template.New("prompt").Funcs(e.funcs).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrParse, err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("%w: %w", ErrExecute, err)
	}
	return buf.String(), nil
}

// ValidateVariables checks that every required variable is provided.
func ValidateVariables(required []string, provided map[string]any) error {
	for _, name := range required {
		if _, ok := provided[name]; !ok {
			return fmt.Errorf("%w: %s", ErrVariable, name)
		}
	}
	return nil
}
