package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestStringFields(t *testing.T) {
	tests := []struct {
		name  string
		attr  slog.Attr
		key   string
		value string
	}{
		{"service", Service("mazefeed"), FieldService, "mazefeed"},
		{"method", Method("GET"), FieldMethod, "GET"},
		{"path", Path("/api/mazes"), FieldPath, "/api/mazes"},
		{"subject", Subject("maze-solver.events"), FieldSubject, "maze-solver.events"},
		{"maze id", MazeID("abc"), FieldMazeID, "abc"},
		{"maze field", MazeField("skeleton"), FieldMazeField, "skeleton"},
		{"object key", ObjectKey("mazes/1/raw.png"), FieldObjectKey, "mazes/1/raw.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("expected key %q, got %q", tt.key, tt.attr.Key)
			}
			if tt.attr.Value.String() != tt.value {
				t.Errorf("expected value %q, got %q", tt.value, tt.attr.Value.String())
			}
		})
	}
}

func TestStatus(t *testing.T) {
	attr := Status(404)
	if attr.Key != FieldStatus {
		t.Errorf("expected key %q, got %q", FieldStatus, attr.Key)
	}
	if attr.Value.Int64() != 404 {
		t.Errorf("expected 404, got %d", attr.Value.Int64())
	}
}

func TestDuration(t *testing.T) {
	attr := Duration(150)
	if attr.Value.Int64() != 150 {
		t.Errorf("expected 150, got %d", attr.Value.Int64())
	}
}

func TestSequence(t *testing.T) {
	attr := Sequence(42)
	if attr.Key != FieldSequence {
		t.Errorf("expected key %q, got %q", FieldSequence, attr.Key)
	}
	if attr.Value.Uint64() != 42 {
		t.Errorf("expected 42, got %d", attr.Value.Uint64())
	}
}

func TestError(t *testing.T) {
	attr := Error(errors.New("boom"))
	if attr.Key != FieldError {
		t.Errorf("expected key %q, got %q", FieldError, attr.Key)
	}
	if attr.Value.String() != "boom" {
		t.Errorf("expected %q, got %q", "boom", attr.Value.String())
	}

	if got := Error(nil).Value.String(); got != "" {
		t.Errorf("expected empty value for nil error, got %q", got)
	}
}
