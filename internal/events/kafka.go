// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cimillas/storefront/services/api/internal/domain"
	"github.com/segmentio/kafka-go"
)

const TypeOrderCreated = "order.created"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per committed order, keyed by user id so
// a user's orders stay on one partition.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			Async:                  false,
			BatchTimeout:           10 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

type orderCreatedEvent struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"orderId"`
	UserID     string    `json:"userId"`
	ProductID  string    `json:"productId"`
	Quantity   int       `json:"quantity"`
	TotalPrice string    `json:"totalPrice"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (p *KafkaPublisher) PublishOrderCreated(ctx context.Context, order domain.Order) error {
	value, err := json.Marshal(orderCreatedEvent{
		Type:       TypeOrderCreated,
		OrderID:    order.ID,
		UserID:     order.UserID,
		ProductID:  order.ProductID,
		Quantity:   order.Quantity,
		TotalPrice: order.TotalPrice.StringFixed(2),
		CreatedAt:  order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("encode order event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(TypeOrderCreated)},
		},
	})
	if err != nil {
		return fmt.Errorf("write order event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
