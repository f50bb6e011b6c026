package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyGroup      = "group"
	KeyDocument   = "document"
	KeyKind       = "kind"
	KeyTypeName   = "type_name"
	KeyCount      = "count"
	KeyOutput     = "output"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Group(name string) slog.Attr     { return slog.String(KeyGroup, name) }
func Document(path string) slog.Attr  { return slog.String(KeyDocument, path) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func TypeName(n string) slog.Attr     { return slog.String(KeyTypeName, n) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Output(path string) slog.Attr    { return slog.String(KeyOutput, path) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
