package logging

import "log/slog"

// Common field names for consistent logging across the feed service and CLI.
const (
	FieldService   = "service"
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldSubject   = "subject"
	FieldMazeID    = "maze_id"
	FieldMazeField = "field"
	FieldObjectKey = "object_key"
	FieldSequence  = "sequence"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for the HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for duration in milliseconds.
func Duration(ms int64) slog.Attr {
	return slog.Int64(FieldDuration, ms)
}

// Error returns a slog attribute for an error. A nil error is logged as an empty string.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// Subject returns a slog attribute for a message broker subject.
func Subject(subject string) slog.Attr {
	return slog.String(FieldSubject, subject)
}

// MazeID returns a slog attribute for a maze record ID.
func MazeID(id string) slog.Attr {
	return slog.String(FieldMazeID, id)
}

// MazeField returns a slog attribute for one of the four image fields.
func MazeField(name string) slog.Attr {
	return slog.String(FieldMazeField, name)
}

// ObjectKey returns a slog attribute for an object storage key.
func ObjectKey(key string) slog.Attr {
	return slog.String(FieldObjectKey, key)
}

// Sequence returns a slog attribute for an arrival sequence number.
func Sequence(seq uint64) slog.Attr {
	return slog.Uint64(FieldSequence, seq)
}
