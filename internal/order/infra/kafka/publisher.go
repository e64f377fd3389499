package kafka

import (
	"context"
	"fmt"

	"github.com/dwikikusuma/codshop/internal/order/domain"
	pkgkafka "github.com/dwikikusuma/codshop/pkg/kafka"
	kafkago "github.com/segmentio/kafka-go"
)

const HeaderEventType = "event-type"

// Publisher writes order events keyed by order id, so every event of one
// order lands on the same partition.
type Publisher struct {
	w pkgkafka.MessageWriter
}

func NewPublisher(w pkgkafka.MessageWriter) *Publisher {
	return &Publisher{w: w}
}

func (p *Publisher) Publish(ctx context.Context, e domain.Event) error {
	msg, err := pkgkafka.JSONMessage(e.OrderID, e, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	msg.Headers = append(msg.Headers, kafkago.Header{Key: HeaderEventType, Value: []byte(e.Type)})

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", e.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}

// NoopPublisher drops events. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, domain.Event) error { return nil }
func (NoopPublisher) Close() error                                 { return nil }
