package broadcast

import "context"

// Subscriber receives values published to a Broadcaster.
// Implementations must be safe for concurrent use.
type Subscriber[T any] interface {
	// Receive returns the channel values arrive on. The channel is closed
	// when the subscriber or the owning broadcaster is closed.
	Receive() <-chan T

	// Close deregisters the subscriber and closes its channel. It is
	// idempotent.
	Close() error
}

// Broadcaster fans published values out to any number of subscribers.
// It behaves as a state slot rather than a queue: new subscribers immediately
// receive the most recently published value, then every later one. Slow
// consumers have values dropped rather than blocking the publisher.
type Broadcaster[T any] interface {
	// Subscribe registers a new subscriber. The subscription is torn down
	// automatically when ctx is cancelled.
	Subscribe(ctx context.Context) Subscriber[T]

	// Broadcast publishes a value to all subscribers and records it as the
	// latest value for future subscribers.
	Broadcast(ctx context.Context, value T) error

	// Close shuts the broadcaster down and closes every subscriber.
	Close() error
}
