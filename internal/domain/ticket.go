package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TicketStatus represents the lifecycle state of a ticket
type TicketStatus string

const (
	TicketStatusMinted   TicketStatus = "minted"
	TicketStatusSold     TicketStatus = "sold"
	TicketStatusRefunded TicketStatus = "refunded"
)

// TicketIDSeparator joins an event id and a ticket index
const TicketIDSeparator = "#"

// Ticket is one sellable unit of an event
type Ticket struct {
	ID            string       `json:"id"`
	EventID       string       `json:"event_id"`
	Index         int          `json:"index"`
	Holder        string       `json:"holder,omitempty"`
	Status        TicketStatus `json:"status"`
	PurchasePrice int64        `json:"purchase_price"`
	EscrowTxID    string       `json:"escrow_tx_id,omitempty"`
	RefundedTo    string       `json:"refunded_to,omitempty"`
	Version       int64        `json:"version"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// TicketID derives the deterministic id of the ticket at index within an event
func TicketID(eventID string, index int) string {
	return eventID + TicketIDSeparator + strconv.Itoa(index)
}

// ParseTicketID splits a ticket id into its event id and index
func ParseTicketID(ticketID string) (string, int, error) {
	i := strings.LastIndex(ticketID, TicketIDSeparator)
	if i <= 0 || i == len(ticketID)-1 {
		return "", 0, fmt.Errorf("%w: malformed ticket id %q", ErrInvalidInput, ticketID)
	}
	index, err := strconv.Atoi(ticketID[i+1:])
	if err != nil || index < 0 || strconv.Itoa(index) != ticketID[i+1:] {
		return "", 0, fmt.Errorf("%w: malformed ticket index in %q", ErrInvalidInput, ticketID)
	}
	return ticketID[:i], index, nil
}

// NewMintedTicket returns the unsold ticket at index of eventID
func NewMintedTicket(eventID string, index int, now time.Time) *Ticket {
	return &Ticket{
		ID:        TicketID(eventID, index),
		EventID:   eventID,
		Index:     index,
		Status:    TicketStatusMinted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// OwnedBy reports whether address is the ticket's owner of record. A sold
// ticket is owned by its holder; a refunded one by whoever received the refund.
func (t *Ticket) OwnedBy(address string) bool {
	if address == "" {
		return false
	}
	switch t.Status {
	case TicketStatusSold:
		return t.Holder == address
	case TicketStatusRefunded:
		return t.RefundedTo == address
	default:
		return false
	}
}

// Clone returns a copy safe to mutate
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
