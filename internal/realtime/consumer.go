// Package realtime consumes the product review/rating feed the catalog
// display subscribes to. Purely passive: events never touch the cart or
// checkout state.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ReviewEvent is one new review or rating pushed for a product.
type ReviewEvent struct {
	ProductID  string    `json:"productId"`
	UserName   string    `json:"userName"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Handler must return nil only when the event was handled and the offset
// may be committed.
type Handler func(ctx context.Context, ev ReviewEvent) error

type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

func NewConsumer(brokers []string, group, topic string, logger *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return &Consumer{reader: r, logger: logger}
}

// Run consumes until the context is cancelled. Malformed events are
// logged and committed; a handler error leaves the offset uncommitted
// for redelivery.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	defer c.reader.Close()

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("read review event: %w", err)
		}

		var ev ReviewEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			c.logger.Warn("dropping malformed review event",
				zap.Int64("offset", m.Offset), zap.Error(err))
			_ = c.reader.CommitMessages(ctx, m)
			continue
		}

		if err := h(ctx, ev); err != nil {
			c.logger.Warn("review event handler failed",
				zap.String("product_id", ev.ProductID), zap.Error(err))
			continue
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Warn("commit review event failed", zap.Error(err))
		}
	}
}
