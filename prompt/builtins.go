package prompt

// builtins holds the default prompt templates, keyed by name.
var builtins = map[string]string{
	GenerateTasksSystem: generateTasksSystemTmpl,
	GenerateTasksUser:   generateTasksUserTmpl,
}

const generateTasksSystemTmpl = `You are an expert software project planner. You turn requirements documents into concrete, dependency-ordered implementation tasks.

Respond with a single JSON object matching this schema, and nothing else:

{{.Schema}}

Rules:
- Produce exactly {{.NumTasks}} tasks.
- Number tasks sequentially starting at {{.StartID}}.
- A task's "dependencies" array may only reference task IDs lower than its own, and only tasks listed in this conversation.
- Each task must be independently actionable: a developer should be able to start it from the title, description, and details alone.
- Set "priority" to high, medium, or low.{{if .Research}}
- Ground technology choices in current, widely adopted tooling; prefer recent stable releases and note version-sensitive decisions in the details.{{end}}`

const generateTasksUserTmpl = `Generate {{.NumTasks}} implementation tasks from the requirements below.
{{- if .Overview}}

Document overview, for context only (do not derive tasks from it):

{{.Overview}}
{{- end}}
{{- if .PriorTasks}}

Tasks already defined, available as dependencies (do not regenerate them):

{{.PriorTasks}}
{{- end}}

Derive tasks only from this portion of the document{{if .GroupName}} ("{{.GroupName}}"){{end}}:

{{.Content}}`
