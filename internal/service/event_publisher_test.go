package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fhayvy/CodeEntry/internal/domain"
	"github.com/fhayvy/CodeEntry/pkg/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockProducer is a mock implementation of MessageProducer
type MockProducer struct {
	messages []*kafka.Message
	err      error
	closed   bool
}

func (m *MockProducer) Produce(ctx context.Context, msg *kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MockProducer) Close() {
	m.closed = true
}

func TestKafkaEventPublisher_Publish(t *testing.T) {
	producer := &MockProducer{}
	publisher := NewKafkaEventPublisherWithProducer(producer, "", "")

	event := &domain.LedgerEvent{
		ID:       "9d4f",
		Type:     domain.LedgerEventPurchased,
		Sequence: 7,
		EventID:  "evt-1",
		TicketID: "evt-1#0",
		Actor:    addrB,
		Amount:   500,
	}
	require.NoError(t, publisher.Publish(context.Background(), event))

	require.Len(t, producer.messages, 1)
	msg := producer.messages[0]
	assert.Equal(t, "ticket-ledger-events", msg.Topic)
	assert.Equal(t, []byte("evt-1"), msg.Key)
	assert.Equal(t, "ticket.purchased", msg.Headers["event_type"])
	assert.Equal(t, "9d4f", msg.Headers["event_id"])
	assert.Equal(t, "ticket-ledger", msg.Headers["source"])
	assert.Equal(t, "application/json", msg.Headers["content_type"])
	assert.Equal(t, "7", msg.Headers["sequence"])
	assert.False(t, msg.Timestamp.IsZero())

	var decoded domain.LedgerEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, uint64(7), decoded.Sequence)
	assert.Equal(t, "evt-1#0", decoded.TicketID)
	assert.Equal(t, int64(500), decoded.Amount)
}

func TestKafkaEventPublisher_ProduceError(t *testing.T) {
	producer := &MockProducer{err: errors.New("broker unavailable")}
	publisher := NewKafkaEventPublisherWithProducer(producer, "ledger", "svc")

	err := publisher.Publish(context.Background(), &domain.LedgerEvent{Type: domain.LedgerEventMinted, EventID: "evt-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event.minted")
	assert.Contains(t, err.Error(), "broker unavailable")
}

func TestKafkaEventPublisher_NilEvent(t *testing.T) {
	publisher := NewKafkaEventPublisherWithProducer(&MockProducer{}, "", "")
	assert.Error(t, publisher.Publish(context.Background(), nil))
}

func TestKafkaEventPublisher_Close(t *testing.T) {
	producer := &MockProducer{}
	publisher := NewKafkaEventPublisherWithProducer(producer, "", "")

	require.NoError(t, publisher.Close())
	assert.True(t, producer.closed)
}

func TestNewKafkaEventPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaEventPublisher(context.Background(), nil)
	assert.Error(t, err)

	_, err = NewKafkaEventPublisher(context.Background(), &EventPublisherConfig{Topic: "ledger"})
	assert.Error(t, err)
}

func TestNoOpEventPublisher(t *testing.T) {
	publisher := NewNoOpEventPublisher()
	assert.NoError(t, publisher.Publish(context.Background(), &domain.LedgerEvent{}))
	assert.NoError(t, publisher.Close())
}
