package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/awsford/deeplens-maze-solver/common/messaging"
)

// JetStreamClient extends Client with JetStream persistence, used to replay
// the maze event backlog after a restart.
type JetStreamClient struct {
	*Client
	js jetstream.JetStream
}

// StreamConfig defines a JetStream stream configuration.
type StreamConfig struct {
	Name      string
	Subjects  []string
	MaxAge    time.Duration
	MaxBytes  int64
	MaxMsgs   int64
	Retention jetstream.RetentionPolicy
	Storage   jetstream.StorageType
}

// MazeEventsStream keeps a day of maze events so a restarted feed can rebuild.
var MazeEventsStream = StreamConfig{
	Name:      messaging.StreamMazeEvents,
	Subjects:  []string{messaging.SubjectMazeEvents},
	MaxAge:    24 * time.Hour,
	MaxBytes:  64 * 1024 * 1024,
	MaxMsgs:   100000,
	Retention: jetstream.LimitsPolicy,
	Storage:   jetstream.FileStorage,
}

// NewJetStreamClient creates a JetStream-enabled client.
func NewJetStreamClient(cfg Config) (*JetStreamClient, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	js, err := jetstream.New(client.conn)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	return &JetStreamClient{Client: client, js: js}, nil
}

// CreateOrUpdateStream creates or updates a stream.
func (c *JetStreamClient) CreateOrUpdateStream(ctx context.Context, cfg StreamConfig) (jetstream.Stream, error) {
	stream, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      cfg.Name,
		Subjects:  cfg.Subjects,
		MaxAge:    cfg.MaxAge,
		MaxBytes:  cfg.MaxBytes,
		MaxMsgs:   cfg.MaxMsgs,
		Retention: cfg.Retention,
		Storage:   cfg.Storage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create/update stream %s: %w", cfg.Name, err)
	}
	return stream, nil
}

// PublishSync publishes a message and waits for the stream acknowledgment.
func (c *JetStreamClient) PublishSync(ctx context.Context, subject string, data []byte) (*jetstream.PubAck, error) {
	return c.js.Publish(ctx, subject, data)
}

// SubscribeReplay delivers every retained message on subject from the start
// of the stream, then keeps delivering new ones, in stream order. It uses an
// ordered (ephemeral, unacknowledged) consumer, so nothing is left behind on
// the server when the subscription stops.
func (c *JetStreamClient) SubscribeReplay(ctx context.Context, stream, subject string, handler messaging.MessageHandler, onError messaging.ErrorHandler) (messaging.Subscription, error) {
	consumer, err := c.js.OrderedConsumer(ctx, stream, jetstream.OrderedConsumerConfig{
		FilterSubjects: []string{subject},
		DeliverPolicy:  jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ordered consumer on %s: %w", stream, err)
	}

	sub := &replaySubscription{subject: subject}
	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		m := &messaging.Message{
			Subject:   msg.Subject(),
			Data:      msg.Data(),
			Timestamp: time.Now(),
		}
		if meta, err := msg.Metadata(); err == nil {
			m.Timestamp = meta.Timestamp
		}
		if headers := msg.Headers(); headers != nil {
			m.Metadata = make(map[string]string, len(headers))
			for k := range headers {
				m.Metadata[k] = headers.Get(k)
			}
		}

		if err := handler(ctx, m); err != nil {
			c.logger.Warn("replay handler failed",
				slog.String("subject", m.Subject),
				slog.String("error", err.Error()))
		}
	}, jetstream.ConsumeErrHandler(func(_ jetstream.ConsumeContext, err error) {
		if onError != nil {
			onError(&messaging.SubscriptionError{Subject: subject, Err: err})
		}
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	sub.cc = cc
	return sub, nil
}

type replaySubscription struct {
	subject string
	cc      jetstream.ConsumeContext
	stopped atomic.Bool
}

func (s *replaySubscription) Unsubscribe() error {
	if s.stopped.CompareAndSwap(false, true) {
		s.cc.Stop()
	}
	return nil
}

func (s *replaySubscription) Subject() string {
	return s.subject
}

func (s *replaySubscription) IsValid() bool {
	return !s.stopped.Load()
}
