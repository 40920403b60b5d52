package messaging

import "strings"

// Topic and subject names for the maze solver message bus.
const (
	// TopicMazeEvents is the topic the solver pipeline publishes to once all
	// four images of a maze have been written to object storage.
	TopicMazeEvents = "/maze-solver/events"

	// SubjectMazeEvents is TopicMazeEvents in NATS subject form.
	SubjectMazeEvents = "maze-solver.events"

	// StreamMazeEvents is the JetStream stream capturing maze events for replay.
	StreamMazeEvents = "MAZE_EVENTS"
)

// TopicToSubject maps a slash-separated topic such as "/maze-solver/events"
// onto a NATS subject ("maze-solver.events"). Topics that contain no slash
// are returned unchanged.
func TopicToSubject(topic string) string {
	if !strings.Contains(topic, "/") {
		return topic
	}
	trimmed := strings.Trim(topic, "/")
	parts := strings.FieldsFunc(trimmed, func(r rune) bool { return r == '/' })
	return strings.Join(parts, ".")
}
