package broker

import "context"

// Consumer defines a consumer receiving notification events via message broker
type Consumer interface {
	Close()
	ReceiveEvents(ctx context.Context) (<-chan *Event, error)
}
