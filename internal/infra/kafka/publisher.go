package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"checkout-service/internal/infra"
)

var _ infra.PublisherInterface = (*Publisher)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes lifecycle events to one topic; the event name travels in a
// header and the order id is the message key so events of one order stay ordered.
type Publisher struct {
	writer messageWriter
}

func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewPublisher(brokersCSV, topic string) (*Publisher, error) {
	brokers := ParseBrokers(brokersCSV)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}}, nil
}

func (p *Publisher) Publish(ctx context.Context, pattern string, data any) error {
	value, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s: %w", pattern, err)
	}
	msg := kafka.Message{
		Key:     []byte(keyOf(data)),
		Value:   value,
		Headers: []kafka.Header{{Key: "event", Value: []byte(pattern)}},
		Time:    time.Now().UTC(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: publish %s: %w", pattern, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

type keyed interface {
	PartitionKey() string
}

func keyOf(data any) string {
	if k, ok := data.(keyed); ok {
		return k.PartitionKey()
	}
	return ""
}
