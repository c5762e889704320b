package dto

import (
	"strings"
	"time"

	"github.com/fhayvy/CodeEntry/internal/domain"
)

// MintRequest represents the request to register an event and mint its tickets
type MintRequest struct {
	EventID     string `json:"event_id"`
	Name        string `json:"name"`
	Date        string `json:"date"`
	Price       int64  `json:"price"`
	MaxCapacity int    `json:"max_capacity"`
	Caller      string `json:"-"` // Set from context
}

// Validate performs the shape checks; ledger rules are enforced by the service
func (r *MintRequest) Validate() (bool, string) {
	if strings.TrimSpace(r.EventID) == "" {
		return false, "Event ID is required"
	}
	if strings.TrimSpace(r.Name) == "" {
		return false, "Event name is required"
	}
	if r.Date == "" {
		return false, "Event date is required"
	}
	return true, ""
}

// TransferRequest represents the request to transfer a ticket
type TransferRequest struct {
	NewOwner string `json:"new_owner"`
}

// EventResponse represents the response for an event
type EventResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        string    `json:"date"`
	TicketPrice int64     `json:"ticket_price"`
	MaxCapacity int       `json:"max_capacity"`
	TicketsSold int       `json:"tickets_sold"`
	Status      string    `json:"status"`
	Owner       string    `json:"owner"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TicketResponse represents the response for a ticket
type TicketResponse struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	Index         int       `json:"index"`
	Owner         string    `json:"owner,omitempty"`
	Status        string    `json:"status"`
	PurchasePrice int64     `json:"purchase_price"`
	EscrowTxID    string    `json:"escrow_tx_id,omitempty"`
	RefundedTo    string    `json:"refunded_to,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// OperationResponse carries the id returned by a successful ledger operation
type OperationResponse struct {
	ID string `json:"id"`
}

// DigestResponse carries the digest of the committed ledger
type DigestResponse struct {
	Digest string `json:"digest"`
}

// ToEventResponse converts a domain event
func ToEventResponse(e *domain.Event) *EventResponse {
	if e == nil {
		return nil
	}
	return &EventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Date:        e.Date,
		TicketPrice: e.TicketPrice,
		MaxCapacity: e.MaxCapacity,
		TicketsSold: e.TicketsSold,
		Status:      string(e.Status),
		Owner:       e.Owner,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

// ToTicketResponse converts a domain ticket
func ToTicketResponse(t *domain.Ticket) *TicketResponse {
	if t == nil {
		return nil
	}
	return &TicketResponse{
		ID:            t.ID,
		EventID:       t.EventID,
		Index:         t.Index,
		Owner:         t.Holder,
		Status:        string(t.Status),
		PurchasePrice: t.PurchasePrice,
		EscrowTxID:    t.EscrowTxID,
		RefundedTo:    t.RefundedTo,
		UpdatedAt:     t.UpdatedAt,
	}
}

// ToEventResponses converts a list of events
func ToEventResponses(events []*domain.Event) []*EventResponse {
	out := make([]*EventResponse, len(events))
	for i, e := range events {
		out[i] = ToEventResponse(e)
	}
	return out
}

// ToTicketResponses converts a list of tickets
func ToTicketResponses(tickets []*domain.Ticket) []*TicketResponse {
	out := make([]*TicketResponse, len(tickets))
	for i, t := range tickets {
		out[i] = ToTicketResponse(t)
	}
	return out
}
