package cascade

import "log/slog"

// LevelSuccess sits between Info and Warn. Successful generation calls
// log at this level so operators can filter for completions without
// raising the floor to Warn.
const LevelSuccess = slog.LevelInfo + 2

// ReplaceLevelNames is a slog.HandlerOptions.ReplaceAttr function that
// renders LevelSuccess as "SUCCESS" instead of "INFO+2".
func ReplaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelSuccess {
			a.Value = slog.StringValue("SUCCESS")
		}
	}
	return a
}
