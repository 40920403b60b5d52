// Package messaging provides abstractions for message broker communication.
// It defines interfaces that allow the feed service to publish and subscribe
// to messages without being coupled to a specific broker implementation.
package messaging

import (
	"context"
	"fmt"
	"time"
)

// Message represents a message received from or sent to a message broker.
type Message struct {
	// Subject is the topic/channel the message was published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Reply is an optional subject for request/reply patterns.
	Reply string

	// Metadata contains optional key-value pairs for message headers.
	Metadata map[string]string

	// Timestamp is when the message was published, or received when the
	// broker does not carry a publish time.
	Timestamp time.Time
}

// MessageHandler processes a received message.
type MessageHandler func(ctx context.Context, msg *Message) error

// ErrorHandler receives asynchronous transport errors.
type ErrorHandler func(err error)

// Subscription represents an active subscription to a subject.
type Subscription interface {
	// Unsubscribe stops receiving messages on this subscription.
	Unsubscribe() error

	// Subject returns the subject this subscription is listening to.
	Subject() string

	// IsValid returns true if the subscription is still active.
	IsValid() bool
}

// Publisher publishes messages to subjects.
type Publisher interface {
	// Publish sends a message to the specified subject (fire-and-forget).
	Publish(ctx context.Context, subject string, data []byte) error

	// PublishMsg sends a Message with full control over headers.
	PublishMsg(ctx context.Context, msg *Message) error

	// Request sends a message and waits for a response.
	Request(ctx context.Context, subject string, data []byte, timeout time.Duration) (*Message, error)

	// Close releases any resources held by the publisher.
	Close() error
}

// Subscriber subscribes to messages on subjects.
type Subscriber interface {
	// Subscribe creates a fan-out subscription to the specified subject.
	Subscribe(subject string, handler MessageHandler) (Subscription, error)

	// Close releases any resources and unsubscribes all active subscriptions.
	Close() error
}

// Client combines Publisher and Subscriber interfaces.
type Client interface {
	Publisher
	Subscriber

	// Drain gracefully closes the connection, allowing in-flight messages to complete.
	Drain() error

	// IsConnected returns true if the client is connected to the broker.
	IsConnected() bool
}

// SubscriptionError is a transport-level failure delivering messages.
// It never terminates the subscription by itself.
type SubscriptionError struct {
	Subject string
	Err     error
}

func (e *SubscriptionError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("subscription error: %v", e.Err)
	}
	return fmt.Sprintf("subscription error on %s: %v", e.Subject, e.Err)
}

func (e *SubscriptionError) Unwrap() error {
	return e.Err
}
