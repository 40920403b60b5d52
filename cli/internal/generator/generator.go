// Package generator fabricates maze events for exercising the feed without
// the camera pipeline.
package generator

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
)

// MazeEvent is the payload the solver publishes for every processed maze.
type MazeEvent struct {
	Raw       string `json:"raw" yaml:"raw"`
	Processed string `json:"processed" yaml:"processed"`
	Skeleton  string `json:"skeleton" yaml:"skeleton"`
	Solved    string `json:"solved" yaml:"solved"`
}

// Encode renders ev as the solver does, wrapped in {"value": ...}, or as the
// bare object.
func Encode(ev MazeEvent, bare bool) ([]byte, error) {
	if bare {
		return json.Marshal(ev)
	}
	return json.Marshal(struct {
		Value MazeEvent `json:"value"`
	}{Value: ev})
}

// Generator produces storage keys laid out like the solver's uploads:
// {prefix}{date}/{id}/{field}.{ext}.
type Generator struct {
	faker  *gofakeit.Faker
	prefix string
	ext    string
	now    func() time.Time
}

// New creates a Generator. A zero seed picks a random one.
func New(seed int64, prefix string) *Generator {
	return &Generator{
		faker:  gofakeit.New(seed),
		prefix: prefix,
		ext:    "jpg",
		now:    time.Now,
	}
}

// Event returns a new event whose four keys share one maze id.
func (g *Generator) Event() MazeEvent {
	now := g.now()
	taken := g.faker.DateRange(now.Add(-7*24*time.Hour), now)
	base := fmt.Sprintf("%s%s/%s", g.prefix, taken.Format("2006-01-02"), g.faker.UUID())

	return MazeEvent{
		Raw:       fmt.Sprintf("%s/raw.%s", base, g.ext),
		Processed: fmt.Sprintf("%s/processed.%s", base, g.ext),
		Skeleton:  fmt.Sprintf("%s/skeleton.%s", base, g.ext),
		Solved:    fmt.Sprintf("%s/solved.%s", base, g.ext),
	}
}
