package domain

import (
	"time"
)

// LedgerEventType identifies a committed state change
type LedgerEventType string

const (
	LedgerEventMinted      LedgerEventType = "event.minted"
	LedgerEventPurchased   LedgerEventType = "ticket.purchased"
	LedgerEventTransferred LedgerEventType = "ticket.transferred"
	LedgerEventCanceled    LedgerEventType = "event.canceled"
	LedgerEventRefunded    LedgerEventType = "ticket.refunded"
)

// LedgerEvent describes one committed operation
type LedgerEvent struct {
	ID         string          `json:"id"`
	Type       LedgerEventType `json:"type"`
	Sequence   uint64          `json:"sequence"`
	EventID    string          `json:"event_id"`
	TicketID   string          `json:"ticket_id,omitempty"`
	Actor      string          `json:"actor"`
	To         string          `json:"to,omitempty"`
	Amount     int64           `json:"amount,omitempty"`
	EscrowTxID string          `json:"escrow_tx_id,omitempty"`
	Digest     string          `json:"digest,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Key returns the partition key, keeping one event's history ordered
func (e *LedgerEvent) Key() string {
	return e.EventID
}
