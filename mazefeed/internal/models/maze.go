// Package models defines the maze event received from the solver pipeline and
// the resolved record shown on the dashboard.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Field names one of the four images produced for every maze.
type Field string

const (
	FieldRaw       Field = "raw"
	FieldProcessed Field = "processed"
	FieldSkeleton  Field = "skeleton"
	FieldSolved    Field = "solved"
)

// Fields is the fixed set of image fields in resolution and display order.
var Fields = []Field{FieldRaw, FieldProcessed, FieldSkeleton, FieldSolved}

// Title is the label the dashboard shows above the image tile.
func (f Field) Title() string {
	switch f {
	case FieldRaw:
		return "Raw"
	case FieldProcessed:
		return "Processed"
	case FieldSkeleton:
		return "Skeleton"
	case FieldSolved:
		return "Solved"
	default:
		return string(f)
	}
}

// Valid reports whether f is one of Fields.
func (f Field) Valid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// ParseField parses a field name. The empty string is rejected.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", fmt.Errorf("unknown maze field %q", s)
	}
	return f, nil
}

var (
	// ErrInvalidEvent is the root of every payload decoding or validation failure.
	ErrInvalidEvent = errors.New("invalid maze event")
)

// MazeEvent carries the opaque object storage keys for one processed maze.
type MazeEvent struct {
	Raw       string `json:"raw"`
	Processed string `json:"processed"`
	Skeleton  string `json:"skeleton"`
	Solved    string `json:"solved"`
}

// Key returns the storage key held in field f.
func (e MazeEvent) Key(f Field) string {
	switch f {
	case FieldRaw:
		return e.Raw
	case FieldProcessed:
		return e.Processed
	case FieldSkeleton:
		return e.Skeleton
	case FieldSolved:
		return e.Solved
	}
	return ""
}

// Validate checks that all four keys are present.
func (e MazeEvent) Validate() error {
	var missing []Field
	for _, f := range Fields {
		if strings.TrimSpace(e.Key(f)) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

// envelope is the transport shape: {"value": {raw, processed, skeleton, solved}}.
type envelope struct {
	Value json.RawMessage `json:"value"`
}

// DecodeEvent parses a feed payload and validates it. Both the enveloped
// form and a bare event object are accepted. Field values must be strings.
func DecodeEvent(data []byte) (MazeEvent, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return MazeEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	body := data
	if len(env.Value) > 0 && string(env.Value) != "null" {
		body = env.Value
	}

	var ev MazeEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return MazeEvent{}, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return MazeEvent{}, err
	}
	return ev, nil
}

// ValidationError lists the fields missing from an event.
type ValidationError struct {
	Missing []Field
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("invalid maze event: missing %s", strings.Join(names, ", "))
}

// Is makes errors.Is(err, ErrInvalidEvent) hold for validation failures.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidEvent
}

// ResolutionError reports a failure to turn one field of an event into a
// displayable reference. Field is empty when the credential fetch failed.
type ResolutionError struct {
	Field Field
	Key   string
	Err   error
}

func (e *ResolutionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("resolve maze: obtain credential: %v", e.Err)
	}
	return fmt.Sprintf("resolve maze %s %q: %v", e.Field, e.Key, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// MazeRecord is the resolved, displayable form of a MazeEvent. It is never
// modified after the resolver creates it.
type MazeRecord struct {
	ID         string    `json:"id"`
	Sequence   uint64    `json:"sequence"`
	Raw        string    `json:"raw"`
	Processed  string    `json:"processed"`
	Skeleton   string    `json:"skeleton"`
	Solved     string    `json:"solved"`
	Source     MazeEvent `json:"source"`
	ReceivedAt time.Time `json:"received_at"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Image returns the resolved reference for field f.
func (r MazeRecord) Image(f Field) string {
	switch f {
	case FieldRaw:
		return r.Raw
	case FieldProcessed:
		return r.Processed
	case FieldSkeleton:
		return r.Skeleton
	case FieldSolved:
		return r.Solved
	}
	return ""
}

// SetImage stores the resolved reference for field f. It is only used while
// the record is being built.
func (r *MazeRecord) SetImage(f Field, ref string) {
	switch f {
	case FieldRaw:
		r.Raw = ref
	case FieldProcessed:
		r.Processed = ref
	case FieldSkeleton:
		r.Skeleton = ref
	case FieldSolved:
		r.Solved = ref
	}
}
