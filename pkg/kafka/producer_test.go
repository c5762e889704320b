package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(context.Background(), &ProducerConfig{})
	assert.Error(t, err)

	_, err = NewProducer(context.Background(), nil)
	assert.Error(t, err)
}

func TestToRecord_SortsHeaders(t *testing.T) {
	ts := time.Date(2024, 12, 15, 10, 0, 0, 0, time.UTC)
	rec := toRecord(&Message{
		Topic:     "ticket-ledger-events",
		Key:       []byte("evt-1"),
		Value:     []byte(`{}`),
		Headers:   map[string]string{"source": "ticket-ledger", "event_type": "event.minted", "content_type": "application/json"},
		Timestamp: ts,
	})

	require.Len(t, rec.Headers, 3)
	assert.Equal(t, "content_type", rec.Headers[0].Key)
	assert.Equal(t, "event_type", rec.Headers[1].Key)
	assert.Equal(t, "source", rec.Headers[2].Key)
	assert.Equal(t, []byte("event.minted"), rec.Headers[1].Value)
	assert.Equal(t, "ticket-ledger-events", rec.Topic)
	assert.Equal(t, ts, rec.Timestamp)
}
