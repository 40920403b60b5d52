package messaging

import "testing"

func TestTopicToSubject(t *testing.T) {
	tests := []struct {
		topic    string
		expected string
	}{
		{TopicMazeEvents, SubjectMazeEvents},
		{"maze-solver/events", "maze-solver.events"},
		{"/maze-solver/events/", "maze-solver.events"},
		{"//a//b", "a.b"},
		{"maze-solver.events", "maze-solver.events"},
		{"single", "single"},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			if got := TopicToSubject(tt.topic); got != tt.expected {
				t.Errorf("TopicToSubject(%q) = %q, expected %q", tt.topic, got, tt.expected)
			}
		})
	}
}
