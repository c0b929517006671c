package ports

import "context"

// EventPublisher delivers canonical settlement envelopes to the mesh broker.
// eventType addresses the topic (the kafka adapter maps canonical types onto
// the settlement.* topics, unmapped types fall through by name, which is how
// the dead-letter channel is reached); partitionKey keeps per-entity order.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload []byte, partitionKey string) error
}
