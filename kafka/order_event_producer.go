package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront-backend/models"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// OrderEventProducer publishes order lifecycle events keyed by order
// id. The hash balancer pins every event for one order to the same
// partition, so consumers see a given order's events in order.
type OrderEventProducer struct {
	writer *kafka.Writer
	topic  string
	logger *zap.Logger
}

func NewOrderEventProducer(brokers []string, topic string, logger *zap.Logger) *OrderEventProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}
	logger.Info("Kafka order event producer initialized",
		zap.String("topic", topic),
		zap.Strings("brokers", brokers),
	)
	return &OrderEventProducer{writer: w, topic: topic, logger: logger}
}

func (p *OrderEventProducer) PublishOrderEvent(event models.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		p.logger.Error("Failed to publish order event",
			zap.String("order_id", event.OrderID),
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
		return fmt.Errorf("write order event for %s: %w", event.OrderID, err)
	}

	return nil
}

func (p *OrderEventProducer) Close() {
	if err := p.writer.Close(); err != nil {
		p.logger.Warn("Kafka producer close failed", zap.Error(err))
		return
	}
	p.logger.Info("Kafka order event producer closed")
}
