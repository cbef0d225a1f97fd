// Package outbox declares the in-process event fan-out used to announce
// order changes after their transaction commits.
package outbox

import "context"

// Event names are dotted and stable, e.g. "order.placed".
type Event interface {
	EventName() string
}

// Handler errors are logged by the bus and never reach the publisher.
type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Subscriber must be called before the bus starts dispatching.
type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

type Bus interface {
	Publisher
	Subscriber
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }
