package events

import "context"

// NoopConsumer backs runtimes without a broker: the consumer worker keeps
// its loop but every poll comes back empty, so no intake feed exists.
type NoopConsumer struct{}

func NewNoopConsumer() *NoopConsumer {
	return &NoopConsumer{}
}

func (n *NoopConsumer) Poll(_ context.Context, _ int) ([]Message, error) {
	return nil, nil
}
