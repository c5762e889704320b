package repository

import (
	"context"
	"errors"

	"github.com/fhayvy/CodeEntry/internal/domain"
)

// ErrReadOnly is returned by Put calls made inside View
var ErrReadOnly = errors.New("ledger transaction is read-only")

// LedgerRepository is the authoritative store of events and tickets.
// Every mutation happens inside Update; there is no partial commit.
type LedgerRepository interface {
	// View runs fn against committed state
	View(ctx context.Context, fn func(tx LedgerTx) error) error
	// Update runs fn as one atomic unit, committed iff fn returns nil
	Update(ctx context.Context, fn func(tx LedgerTx) error) error
	// Snapshot returns the full committed state in canonical order
	Snapshot(ctx context.Context) (*Snapshot, error)
	// Ping reports whether the backing store is reachable
	Ping(ctx context.Context) error
	Close() error
}

// LedgerTx is the record-level view inside View or Update.
//
// Put follows optimistic versioning. A record with Version 0 is inserted
// and a duplicate id yields domain.ErrConflict. A record with Version n
// replaces the stored record only when the stored version is n. On
// success the record's Version is advanced to the stored value.
type LedgerTx interface {
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	GetTicket(ctx context.Context, id string) (*domain.Ticket, error)
	PutEvent(ctx context.Context, event *domain.Event) error
	PutTicket(ctx context.Context, ticket *domain.Ticket) error
	// PutTickets applies PutTicket to each ticket in order
	PutTickets(ctx context.Context, tickets []*domain.Ticket) error
	// ListEvents returns events ordered by id
	ListEvents(ctx context.Context) ([]*domain.Event, error)
	// ListTicketsByEvent returns an event's tickets ordered by index
	ListTicketsByEvent(ctx context.Context, eventID string) ([]*domain.Ticket, error)
	// ListTicketsByHolder returns held tickets ordered by event id, then index
	ListTicketsByHolder(ctx context.Context, holder string) ([]*domain.Ticket, error)
}
