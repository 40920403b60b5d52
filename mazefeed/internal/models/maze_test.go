package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent(t *testing.T) {
	want := MazeEvent{Raw: "r1", Processed: "p1", Skeleton: "s1", Solved: "v1"}

	tests := []struct {
		name    string
		payload string
	}{
		{"enveloped", `{"value":{"raw":"r1","processed":"p1","skeleton":"s1","solved":"v1"}}`},
		{"bare object", `{"raw":"r1","processed":"p1","skeleton":"s1","solved":"v1"}`},
		{"extra fields ignored", `{"value":{"raw":"r1","processed":"p1","skeleton":"s1","solved":"v1","elapsed":1.2}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, want, ev)
		})
	}
}

func TestDecodeEvent_Invalid(t *testing.T) {
	tests := []struct {
		name        string
		payload     string
		wantMissing []Field
	}{
		{"not json", `not json`, nil},
		{"array", `[1,2]`, nil},
		{"non-string key", `{"value":{"raw":1,"processed":"p","skeleton":"s","solved":"v"}}`, nil},
		{"missing skeleton", `{"value":{"raw":"r","processed":"p","solved":"v"}}`, []Field{FieldSkeleton}},
		{"blank raw", `{"raw":"  ","processed":"p","skeleton":"s","solved":"v"}`, []Field{FieldRaw}},
		{"empty object", `{}`, Fields},
		{"null value", `{"value":null}`, Fields},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.payload))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidEvent), "expected ErrInvalidEvent, got %v", err)

			var verr *ValidationError
			if tt.wantMissing == nil {
				assert.False(t, errors.As(err, &verr))
				return
			}
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantMissing, verr.Missing)
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Missing: []Field{FieldProcessed, FieldSolved}}
	assert.Equal(t, "invalid maze event: missing processed, solved", err.Error())
}

func TestResolutionError(t *testing.T) {
	cause := errors.New("access denied")

	err := &ResolutionError{Field: FieldSkeleton, Key: "s1", Err: cause}
	assert.Equal(t, `resolve maze skeleton "s1": access denied`, err.Error())
	assert.ErrorIs(t, err, cause)

	credErr := &ResolutionError{Err: cause}
	assert.Equal(t, "resolve maze: obtain credential: access denied", credErr.Error())
}

func TestMazeEvent_Key(t *testing.T) {
	ev := MazeEvent{Raw: "a", Processed: "b", Skeleton: "c", Solved: "d"}
	got := make([]string, 0, len(Fields))
	for _, f := range Fields {
		got = append(got, ev.Key(f))
	}
	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
	assert.Empty(t, ev.Key(Field("unknown")))
}

func TestMazeRecord_SetImage(t *testing.T) {
	var rec MazeRecord
	for _, f := range Fields {
		rec.SetImage(f, string(f)+"-url")
	}
	for _, f := range Fields {
		assert.Equal(t, string(f)+"-url", rec.Image(f))
	}
	rec.SetImage(Field("bogus"), "x")
	assert.Empty(t, rec.Image(Field("bogus")))
}

func TestParseField(t *testing.T) {
	f, err := ParseField(" Raw ")
	require.NoError(t, err)
	assert.Equal(t, FieldRaw, f)

	_, err = ParseField("")
	assert.Error(t, err)
	_, err = ParseField("thumbnail")
	assert.Error(t, err)
}

func TestField_Title(t *testing.T) {
	assert.Equal(t, "Raw", FieldRaw.Title())
	assert.Equal(t, "Processed", FieldProcessed.Title())
	assert.Equal(t, "Skeleton", FieldSkeleton.Title())
	assert.Equal(t, "Solved", FieldSolved.Title())
	assert.Equal(t, "other", Field("other").Title())
}
