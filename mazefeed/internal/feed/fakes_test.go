package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/models"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/objectstore"
)

type fakeCreds struct {
	calls atomic.Int32
	token string
	err   error
}

func (f *fakeCreds) Token(ctx context.Context) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

type getCall struct {
	key  string
	opts objectstore.GetOptions
}

// fakeObjects resolves key k to "k-resolved" unless told otherwise.
type fakeObjects struct {
	mu     sync.Mutex
	calls  []getCall
	delays map[string]time.Duration
	errs   map[string]error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{
		delays: make(map[string]time.Duration),
		errs:   make(map[string]error),
	}
}

func (f *fakeObjects) Get(ctx context.Context, key string, opts objectstore.GetOptions) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, getCall{key: key, opts: opts})
	delay := f.delays[key]
	err := f.errs[key]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return key + "-resolved", nil
}

func (f *fakeObjects) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.key
	}
	return out
}

func (f *fakeObjects) setDelay(key string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delays[key] = d
}

func (f *fakeObjects) setErr(key string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[key] = err
}

func event(n int) models.MazeEvent {
	return models.MazeEvent{
		Raw:       fmt.Sprintf("r%d", n),
		Processed: fmt.Sprintf("p%d", n),
		Skeleton:  fmt.Sprintf("s%d", n),
		Solved:    fmt.Sprintf("v%d", n),
	}
}

func envelope(ev models.MazeEvent) []byte {
	return []byte(fmt.Sprintf(`{"value":{"raw":%q,"processed":%q,"skeleton":%q,"solved":%q}}`,
		ev.Raw, ev.Processed, ev.Skeleton, ev.Solved))
}

// gatedResolver blocks every resolution until release is closed.
type gatedResolver struct {
	release chan struct{}
	started chan struct{}
}

func newGatedResolver() *gatedResolver {
	return &gatedResolver{release: make(chan struct{}), started: make(chan struct{}, 64)}
}

func (g *gatedResolver) Resolve(ctx context.Context, ev models.MazeEvent) (models.MazeRecord, error) {
	g.started <- struct{}{}
	<-g.release
	return models.MazeRecord{Raw: ev.Raw + "-resolved", Source: ev}, nil
}
