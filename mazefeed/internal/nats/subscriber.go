// Package nats connects the maze feed to the solver's event stream.
package nats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/awsford/deeplens-maze-solver/common/logging"
	"github.com/awsford/deeplens-maze-solver/common/messaging"
	"github.com/awsford/deeplens-maze-solver/mazefeed/internal/metrics"
)

// ErrAlreadySubscribed is returned by Start on an active subscriber.
var ErrAlreadySubscribed = errors.New("feed subscriber already started")

// Replayer creates subscriptions that first deliver the retained backlog.
type Replayer interface {
	SubscribeReplay(ctx context.Context, stream, subject string, handler messaging.MessageHandler, onError messaging.ErrorHandler) (messaging.Subscription, error)
}

// Config configures a FeedSubscriber.
type Config struct {
	// Topic is the pub/sub topic, either "/maze-solver/events" or its
	// subject form.
	Topic string

	// Replay, when set, replaces the live subscription with one that replays
	// Stream from the beginning.
	Replay Replayer
	Stream string

	// OnError receives transport errors after they are logged and counted.
	OnError messaging.ErrorHandler

	Logger *slog.Logger
}

// FeedSubscriber owns the single subscription to the maze events topic.
type FeedSubscriber struct {
	client  messaging.Subscriber
	handler messaging.MessageHandler
	subject string
	replay  Replayer
	stream  string
	onError messaging.ErrorHandler
	logger  *slog.Logger

	// mu is held for reading while a message is handled, so Stop waits for
	// a running handler and later deliveries see stopped.
	mu      sync.RWMutex
	sub     messaging.Subscription
	stopped bool
}

// NewFeedSubscriber creates a FeedSubscriber that passes every message on
// the topic to handler.
func NewFeedSubscriber(client messaging.Subscriber, handler messaging.MessageHandler, cfg Config) *FeedSubscriber {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	topic := cfg.Topic
	if topic == "" {
		topic = messaging.TopicMazeEvents
	}
	return &FeedSubscriber{
		client:  client,
		handler: handler,
		subject: messaging.TopicToSubject(topic),
		replay:  cfg.Replay,
		stream:  cfg.Stream,
		onError: cfg.OnError,
		logger:  logger.With(slog.String(logging.FieldComponent, "feed-subscriber")),
	}
}

// Subject returns the transport subject the subscriber listens on.
func (s *FeedSubscriber) Subject() string {
	return s.subject
}

// Start subscribes to the topic. ctx bounds the replay consumer; the live
// subscription lasts until Stop.
func (s *FeedSubscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub != nil && !s.stopped {
		return ErrAlreadySubscribed
	}

	var (
		sub messaging.Subscription
		err error
	)
	if s.replay != nil {
		sub, err = s.replay.SubscribeReplay(ctx, s.stream, s.subject, s.handle, s.ReportError)
	} else {
		sub, err = s.client.Subscribe(s.subject, s.handle)
	}
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.subject, err)
	}

	s.sub = sub
	s.stopped = false

	s.logger.Info("subscribed to maze events",
		logging.Subject(s.subject),
		slog.Bool("replay", s.replay != nil))
	return nil
}

// Stop unsubscribes. It can be called any number of times; once it returns
// the handler is not invoked again.
func (s *FeedSubscriber) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped || s.sub == nil {
		s.stopped = true
		return nil
	}
	s.stopped = true

	if err := s.sub.Unsubscribe(); err != nil {
		s.logger.Warn("unsubscribe failed", logging.Subject(s.subject), logging.Error(err))
		return err
	}
	s.logger.Info("unsubscribed from maze events", logging.Subject(s.subject))
	return nil
}

// Active reports whether the subscriber is started and not stopped.
func (s *FeedSubscriber) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sub != nil && !s.stopped
}

// ReportError records a transport error. The subscription stays in place;
// reconnecting is left to the client.
func (s *FeedSubscriber) ReportError(err error) {
	if err == nil {
		return
	}
	var subErr *messaging.SubscriptionError
	if !errors.As(err, &subErr) {
		err = &messaging.SubscriptionError{Subject: s.subject, Err: err}
	}

	metrics.SubscriptionErrors.Inc()
	s.logger.Error("maze event subscription error", logging.Error(err))

	if s.onError != nil {
		s.onError(err)
	}
}

func (s *FeedSubscriber) handle(ctx context.Context, msg *messaging.Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return nil
	}
	return s.handler(ctx, msg)
}
