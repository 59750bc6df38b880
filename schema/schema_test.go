package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmith/taskmith/provider"
)

type testPayload struct {
	Tasks []testTask `json:"tasks"`
	Notes string     `json:"notes,omitempty"`
}

type testTask struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

func TestFor_GeneratesInlineSchema(t *testing.T) {
	s, err := For[testPayload]("tasks")
	require.NoError(t, err)

	assert.Equal(t, "tasks", s.Name)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(s.JSON, &doc))
	props, ok := doc["properties"].(map[string]any)
	require.True(t, ok, "schema must inline properties, got: %s", s.JSON)
	assert.Contains(t, props, "tasks")
}

func TestValidate_RequiredProperty(t *testing.T) {
	s, err := For[testPayload]("tasks")
	require.NoError(t, err)

	require.NoError(t, s.Validate(json.RawMessage(`{"tasks": []}`)))

	err = s.Validate(json.RawMessage(`{"notes": "missing tasks"}`))
	assert.True(t, errors.Is(err, provider.ErrSchemaValidation), "got: %v", err)
}

func TestValidate_NonObject(t *testing.T) {
	s, err := For[testPayload]("tasks")
	require.NoError(t, err)

	err = s.Validate(json.RawMessage(`[1,2,3]`))
	assert.True(t, errors.Is(err, provider.ErrSchemaValidation))
}

func TestDecode(t *testing.T) {
	s, err := For[testPayload]("tasks")
	require.NoError(t, err)

	var out testPayload
	raw := json.RawMessage(`{"tasks": [{"id": 1, "title": "Setup"}]}`)
	require.NoError(t, s.Decode(raw, &out))
	require.Len(t, out.Tasks, 1)
	assert.Equal(t, "Setup", out.Tasks[0].Title)
}
