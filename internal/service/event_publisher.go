package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fhayvy/CodeEntry/internal/domain"
	"github.com/fhayvy/CodeEntry/pkg/kafka"
	"github.com/fhayvy/CodeEntry/pkg/retry"
)

const (
	defaultLedgerTopic    = "ticket-ledger-events"
	defaultPublisherName  = "ticket-ledger"
	defaultProducerClient = "ticket-ledger-producer"
)

// LedgerEventPublisher receives every committed ledger change, in
// sequence order
type LedgerEventPublisher interface {
	Publish(ctx context.Context, event *domain.LedgerEvent) error
	Close() error
}

// MessageProducer sends one message to the broker
type MessageProducer interface {
	Produce(ctx context.Context, msg *kafka.Message) error
	Close()
}

type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// KafkaEventPublisher writes ledger events as JSON records keyed by event
// id, so one event's history lands on one partition
type KafkaEventPublisher struct {
	producer MessageProducer
	topic    string
	source   string
}

// NewKafkaEventPublisher dials the brokers and returns a publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil || len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = defaultProducerClient
	}
	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		LingerMs:      10,
		RecordRetries: 3,
		Retry:         retry.DefaultPolicy(),
	})
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaEventPublisherWithProducer(producer, cfg.Topic, cfg.ServiceName), nil
}

// NewKafkaEventPublisherWithProducer publishes through producer. Empty
// topic or source fall back to the service defaults.
func NewKafkaEventPublisherWithProducer(producer MessageProducer, topic, source string) *KafkaEventPublisher {
	if topic == "" {
		topic = defaultLedgerTopic
	}
	if source == "" {
		source = defaultPublisherName
	}
	return &KafkaEventPublisher{producer: producer, topic: topic, source: source}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event *domain.LedgerEvent) error {
	if event == nil {
		return errors.New("nil ledger event")
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type, err)
	}

	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	err = p.producer.Produce(ctx, &kafka.Message{
		Topic:     p.topic,
		Key:       []byte(event.Key()),
		Value:     value,
		Headers:   p.headers(event),
		Timestamp: at,
	})
	if err != nil {
		return fmt.Errorf("publish %s seq %d: %w", event.Type, event.Sequence, err)
	}
	return nil
}

func (p *KafkaEventPublisher) headers(event *domain.LedgerEvent) map[string]string {
	return map[string]string{
		"event_type":   string(event.Type),
		"event_id":     event.ID,
		"sequence":     strconv.FormatUint(event.Sequence, 10),
		"source":       p.source,
		"content_type": "application/json",
	}
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// NoOpEventPublisher drops every event
type NoOpEventPublisher struct{}

func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

func (NoOpEventPublisher) Publish(context.Context, *domain.LedgerEvent) error { return nil }

func (NoOpEventPublisher) Close() error { return nil }
