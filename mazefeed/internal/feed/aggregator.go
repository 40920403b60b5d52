// Package feed builds the live maze feed: it resolves incoming maze events
// into image references and keeps the resulting records newest first.
package feed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/awsford/deeplens-maze-solver/common/logging"
	"github.com/awsford/deeplens-maze-solver/common/messaging"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/metrics"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/models"
)

// ErrClosed is returned for events handed to a closed Aggregator.
var ErrClosed = errors.New("feed aggregator closed")

// Options configures an Aggregator.
type Options struct {
	// DedupKey selects the field whose key identifies a maze. An event whose
	// key was already appended, or is being resolved, is skipped. Empty
	// disables deduplication.
	DedupKey models.Field

	Logger *slog.Logger
}

// Aggregator receives maze events, resolves them concurrently and appends
// the results to the Store in arrival order.
type Aggregator struct {
	resolver Resolver
	store    *Store
	seq      *sequencer
	dedupKey models.Field
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
	seen   map[string]struct{}
}

// NewAggregator creates an Aggregator that appends to store.
func NewAggregator(resolver Resolver, store *Store, opts Options) *Aggregator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Aggregator{
		resolver: resolver,
		store:    store,
		dedupKey: opts.DedupKey,
		logger:   logger.With(slog.String(logging.FieldComponent, "feed-aggregator")),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		seen:     make(map[string]struct{}),
	}
	a.seq = newSequencer(a.commit)
	return a
}

// HandleMessage is a messaging.MessageHandler for the maze events subject.
// Malformed payloads are rejected before any network call.
func (a *Aggregator) HandleMessage(_ context.Context, msg *messaging.Message) error {
	metrics.EventsReceived.Inc()

	ev, err := models.DecodeEvent(msg.Data)
	if err != nil {
		metrics.EventsDropped.WithLabelValues(metrics.ReasonInvalid).Inc()
		return err
	}
	return a.Handle(ev)
}

// Handle schedules the resolution of ev and returns without waiting for it.
// The event's place in the feed is fixed at this point.
func (a *Aggregator) Handle(ev models.MazeEvent) error {
	if err := ev.Validate(); err != nil {
		metrics.EventsDropped.WithLabelValues(metrics.ReasonInvalid).Inc()
		return err
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrClosed
	}
	if a.dedupKey != "" {
		key := ev.Key(a.dedupKey)
		if _, dup := a.seen[key]; dup {
			a.mu.Unlock()
			metrics.EventsDropped.WithLabelValues(metrics.ReasonDuplicate).Inc()
			a.logger.Debug("skipping duplicate maze event",
				logging.MazeField(string(a.dedupKey)),
				logging.ObjectKey(key))
			return nil
		}
		a.seen[key] = struct{}{}
	}
	seq := a.seq.reserve()
	a.wg.Add(1)
	a.mu.Unlock()

	go a.resolve(seq, a.now(), ev)
	return nil
}

func (a *Aggregator) resolve(seq uint64, receivedAt time.Time, ev models.MazeEvent) {
	defer a.wg.Done()

	metrics.InFlightResolutions.Inc()
	defer metrics.InFlightResolutions.Dec()

	start := time.Now()
	record, err := a.resolver.Resolve(a.ctx, ev)
	metrics.ResolutionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		a.forget(ev)
		a.seq.release(seq)
		a.reportFailure(seq, err)
		return
	}

	record.ID = uuid.New().String()
	record.Sequence = seq
	record.ReceivedAt = receivedAt
	a.seq.complete(seq, record)
}

// commit runs under the sequencer lock, in arrival order.
func (a *Aggregator) commit(record models.MazeRecord) {
	a.store.Append(record)
	metrics.RecordsAppended.Inc()
	a.logger.Info("maze appended to feed",
		logging.MazeID(record.ID),
		logging.Sequence(record.Sequence))
}

func (a *Aggregator) forget(ev models.MazeEvent) {
	if a.dedupKey == "" {
		return
	}
	a.mu.Lock()
	delete(a.seen, ev.Key(a.dedupKey))
	a.mu.Unlock()
}

func (a *Aggregator) reportFailure(seq uint64, err error) {
	if a.ctx.Err() != nil {
		metrics.EventsDropped.WithLabelValues(metrics.ReasonCancelled).Inc()
		a.logger.Debug("maze resolution abandoned", logging.Sequence(seq), logging.Error(err))
		return
	}

	metrics.EventsDropped.WithLabelValues(metrics.ReasonResolution).Inc()

	attrs := []any{logging.Sequence(seq), logging.Error(err)}
	var resErr *models.ResolutionError
	if errors.As(err, &resErr) && resErr.Field != "" {
		attrs = append(attrs, logging.MazeField(string(resErr.Field)), logging.ObjectKey(resErr.Key))
	}
	a.logger.Warn("failed to resolve maze", attrs...)
}

// Close stops accepting events and cancels in-flight resolutions. No record
// is appended after Close returns.
func (a *Aggregator) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.seq.stop()
	a.cancel()
}

// Wait blocks until every scheduled resolution has finished.
func (a *Aggregator) Wait() {
	a.wg.Wait()
}

// Store returns the feed the aggregator appends to.
func (a *Aggregator) Store() *Store {
	return a.store
}
