// Package events publishes committed payment state changes to Kafka so
// the rest of the clinic platform (notifications, analytics) can react.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/binary-solutins/sidclinic-app-web-be-sub001/internal/application"
)

// Publisher writes payment events to a single topic, keyed by payment id
// so one payment's events stay ordered within a partition.
type Publisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		},
		logger: logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, ev application.PaymentEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.PaymentID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("write payment event: %w", err)
	}

	p.logger.Debug("payment event published",
		"payment_id", ev.PaymentID,
		"state", ev.State)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
