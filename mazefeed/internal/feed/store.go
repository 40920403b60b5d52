package feed

import (
	"container/list"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/metrics"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/models"
)

// ErrTooManyListeners is returned by Attach when the listener limit is reached.
var ErrTooManyListeners = errors.New("maximum number of feed listeners reached")

// StoreOptions bounds the live listeners of a Store.
type StoreOptions struct {
	// MaxListeners caps concurrent listeners. Zero means no limit.
	MaxListeners int

	// ListenerBuffer is the channel capacity of each listener.
	ListenerBuffer int
}

// Store is the in-memory maze feed. Records are only ever added; the most
// recently appended record comes first.
type Store struct {
	mu        sync.RWMutex
	records   []models.MazeRecord // oldest first
	listeners *list.List
	opts      StoreOptions
}

// Listener receives records appended after it was attached. When its
// buffer is full new records are dropped for this listener only.
type Listener struct {
	C <-chan models.MazeRecord

	ch      chan models.MazeRecord
	elem    *list.Element
	dropped atomic.Uint64
}

// Dropped reports how many records were skipped because the listener
// was not keeping up.
func (l *Listener) Dropped() uint64 {
	return l.dropped.Load()
}

// NewStore creates an empty Store.
func NewStore(opts StoreOptions) *Store {
	if opts.ListenerBuffer <= 0 {
		opts.ListenerBuffer = 16
	}
	return &Store{
		listeners: list.New(),
		opts:      opts,
	}
}

// Append places record at the front of the feed and notifies listeners.
func (s *Store) Append(record models.MazeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, record)
	metrics.FeedSize.Set(float64(len(s.records)))

	for e := s.listeners.Front(); e != nil; e = e.Next() {
		l := e.Value.(*Listener)
		select {
		case l.ch <- record:
		default:
			l.dropped.Add(1)
		}
	}
}

// List returns a copy of the feed, newest first.
func (s *Store) List() []models.MazeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.MazeRecord, len(s.records))
	for i, r := range s.records {
		out[len(s.records)-1-i] = r
	}
	return out
}

// Len returns the number of records in the feed.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Attach registers a listener and returns it together with the records
// already in the feed, oldest first. No record is both in the snapshot and
// delivered to the listener, and none is missed between the two.
func (s *Store) Attach() (*Listener, []models.MazeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opts.MaxListeners > 0 && s.listeners.Len() >= s.opts.MaxListeners {
		return nil, nil, ErrTooManyListeners
	}

	ch := make(chan models.MazeRecord, s.opts.ListenerBuffer)
	l := &Listener{C: ch, ch: ch}
	l.elem = s.listeners.PushBack(l)
	metrics.ActiveStreams.Inc()

	snapshot := make([]models.MazeRecord, len(s.records))
	copy(snapshot, s.records)
	return l, snapshot, nil
}

// Detach removes the listener and closes its channel. Detaching twice is a no-op.
func (s *Store) Detach(l *Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l == nil || l.elem == nil {
		return
	}
	s.listeners.Remove(l.elem)
	l.elem = nil
	close(l.ch)
	metrics.ActiveStreams.Dec()
}

// Listeners returns the number of attached listeners.
func (s *Store) Listeners() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listeners.Len()
}
