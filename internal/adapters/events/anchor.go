package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/viralforge/mesh/services/financial-rails/M46-dispute-settlement-service/internal/domain"
)

// KafkaAnchorClient delivers anchor-layer notifications over dedicated
// topics. The anchor side consumes these to mirror the settlement chain.
type KafkaAnchorClient struct {
	writer         *kafka.Writer
	receivedTopic  string
	finalizedTopic string
}

func NewKafkaAnchorClient(brokers []string, receivedTopic, finalizedTopic string) (*KafkaAnchorClient, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("anchor client requires at least one broker")
	}
	if receivedTopic == "" {
		receivedTopic = "anchor.batch_received"
	}
	if finalizedTopic == "" {
		finalizedTopic = "anchor.batch_finalized"
	}
	return &KafkaAnchorClient{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		receivedTopic:  receivedTopic,
		finalizedTopic: finalizedTopic,
	}, nil
}

func (c *KafkaAnchorClient) ReceiveBatch(ctx context.Context, batchID uint64, stateRoot, disputeRoot domain.Hash, count int) error {
	payload, err := json.Marshal(map[string]any{
		"batch_id":     batchID,
		"state_root":   stateRoot.Hex(),
		"dispute_root": disputeRoot.Hex(),
		"count":        count,
	})
	if err != nil {
		return err
	}
	return c.writer.WriteMessages(ctx, kafka.Message{
		Topic: c.receivedTopic,
		Key:   []byte(fmt.Sprintf("%d", batchID)),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (c *KafkaAnchorClient) FinalizeBatch(ctx context.Context, batchID uint64, stateRoot domain.Hash) error {
	payload, err := json.Marshal(map[string]any{
		"batch_id":   batchID,
		"state_root": stateRoot.Hex(),
	})
	if err != nil {
		return err
	}
	return c.writer.WriteMessages(ctx, kafka.Message{
		Topic: c.finalizedTopic,
		Key:   []byte(fmt.Sprintf("%d", batchID)),
		Value: payload,
		Time:  time.Now().UTC(),
	})
}

func (c *KafkaAnchorClient) Close() error {
	return c.writer.Close()
}

// LoggingAnchorClient stands in for the anchor layer in local runs.
type LoggingAnchorClient struct {
	logger *slog.Logger
}

func NewLoggingAnchorClient(logger *slog.Logger) *LoggingAnchorClient {
	return &LoggingAnchorClient{logger: logger}
}

func (c *LoggingAnchorClient) ReceiveBatch(ctx context.Context, batchID uint64, stateRoot, disputeRoot domain.Hash, count int) error {
	c.logger.InfoContext(ctx, "anchor batch received",
		"module", "events.anchor",
		"layer", "adapter",
		"operation", "receive_batch",
		"outcome", "success",
		"batch_id", batchID,
		"state_root", stateRoot.Hex(),
		"dispute_root", disputeRoot.Hex(),
		"count", count,
	)
	return nil
}

func (c *LoggingAnchorClient) FinalizeBatch(ctx context.Context, batchID uint64, stateRoot domain.Hash) error {
	c.logger.InfoContext(ctx, "anchor batch finalized",
		"module", "events.anchor",
		"layer", "adapter",
		"operation", "finalize_batch",
		"outcome", "success",
		"batch_id", batchID,
		"state_root", stateRoot.Hex(),
	)
	return nil
}
