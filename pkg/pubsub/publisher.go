package pubsub

import "context"

// Pack is a single message. Messages sharing a key keep their order.
type Pack struct {
	Key []byte
	Msg []byte

	// Headers carry metadata that consumers can filter on without decoding
	// Msg.
	Headers map[string]string
}

type Publisher interface {
	Publish(context.Context, string, *Pack) error
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops every message. It is used
// when no broker is configured.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, string, *Pack) error {
	return nil
}
