package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/fhayvy/CodeEntry/internal/domain"
)

var errRepositoryClosed = errors.New("ledger repository is closed")

// MemoryLedgerRepository keeps the ledger in process memory. Update stages
// writes in an overlay and applies them under the write lock only when the
// callback succeeds, so readers never observe a half-applied operation.
type MemoryLedgerRepository struct {
	mu           sync.RWMutex
	events       map[string]*domain.Event
	tickets      map[string]*domain.Ticket
	eventTickets map[string]map[string]struct{}
	holders      map[string]map[string]struct{}
	closed       bool
}

// NewMemoryLedgerRepository creates an empty in-memory ledger
func NewMemoryLedgerRepository() *MemoryLedgerRepository {
	return &MemoryLedgerRepository{
		events:       make(map[string]*domain.Event),
		tickets:      make(map[string]*domain.Ticket),
		eventTickets: make(map[string]map[string]struct{}),
		holders:      make(map[string]map[string]struct{}),
	}
}

// View runs fn against committed state. The read lock is held for the
// whole of fn, so every read in one View sees the same commit.
func (r *MemoryLedgerRepository) View(ctx context.Context, fn func(tx LedgerTx) error) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return errRepositoryClosed
	}
	return fn(&memoryTx{repo: r, held: true})
}

// Update runs fn and commits its staged writes iff it returns nil
func (r *MemoryLedgerRepository) Update(ctx context.Context, fn func(tx LedgerTx) error) error {
	if r.isClosed() {
		return errRepositoryClosed
	}

	tx := &memoryTx{
		repo:          r,
		writable:      true,
		events:        make(map[string]*domain.Event),
		tickets:       make(map[string]*domain.Ticket),
		eventVersions: make(map[string]int64),
		ticketBase:    make(map[string]int64),
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return r.commit(tx)
}

// Snapshot returns the committed state
func (r *MemoryLedgerRepository) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := r.View(ctx, func(tx LedgerTx) error {
		var err error
		snap, err = collectSnapshot(ctx, tx)
		return err
	})
	return snap, err
}

// Ping reports whether the repository is open
func (r *MemoryLedgerRepository) Ping(ctx context.Context) error {
	if r.isClosed() {
		return errRepositoryClosed
	}
	return nil
}

// Close marks the repository closed
func (r *MemoryLedgerRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *MemoryLedgerRepository) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// commit re-validates every staged version against committed state, then
// applies all writes at once
func (r *MemoryLedgerRepository) commit(tx *memoryTx) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errRepositoryClosed
	}

	for id, base := range tx.eventVersions {
		if err := checkVersion(r.currentEventVersion(id), base); err != nil {
			return fmt.Errorf("event %s: %w", id, err)
		}
	}
	for id, base := range tx.ticketBase {
		if err := checkVersion(r.currentTicketVersion(id), base); err != nil {
			return fmt.Errorf("ticket %s: %w", id, err)
		}
	}

	for id, e := range tx.events {
		r.events[id] = e
	}
	for _, id := range tx.ticketOrder {
		t := tx.tickets[id]
		if prev, ok := r.tickets[id]; ok && prev.Holder != "" {
			delete(r.holders[prev.Holder], id)
			if len(r.holders[prev.Holder]) == 0 {
				delete(r.holders, prev.Holder)
			}
		}
		r.tickets[id] = t

		if r.eventTickets[t.EventID] == nil {
			r.eventTickets[t.EventID] = make(map[string]struct{})
		}
		r.eventTickets[t.EventID][id] = struct{}{}

		if t.Holder != "" {
			if r.holders[t.Holder] == nil {
				r.holders[t.Holder] = make(map[string]struct{})
			}
			r.holders[t.Holder][id] = struct{}{}
		}
	}
	return nil
}

// currentEventVersion returns -1 when the event does not exist
func (r *MemoryLedgerRepository) currentEventVersion(id string) int64 {
	if e, ok := r.events[id]; ok {
		return e.Version
	}
	return -1
}

func (r *MemoryLedgerRepository) currentTicketVersion(id string) int64 {
	if t, ok := r.tickets[id]; ok {
		return t.Version
	}
	return -1
}

// checkVersion compares the stored version (-1 when absent) against the
// version a Put was based on
func checkVersion(current, base int64) error {
	switch {
	case base == 0 && current >= 0:
		return domain.ErrConflict
	case base > 0 && current < 0:
		return domain.ErrNotFound
	case base > 0 && current != base:
		return domain.ErrConflict
	}
	return nil
}

type memoryTx struct {
	repo     *MemoryLedgerRepository
	writable bool
	// held is set inside View, where the read lock is already taken
	held bool

	events        map[string]*domain.Event
	eventVersions map[string]int64

	tickets     map[string]*domain.Ticket
	ticketBase  map[string]int64
	ticketOrder []string
}

// rlock takes the repository read lock unless View already holds it and
// returns the matching unlock
func (tx *memoryTx) rlock() func() {
	if tx.held {
		return func() {}
	}
	tx.repo.mu.RLock()
	return tx.repo.mu.RUnlock
}

func (tx *memoryTx) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	if e, ok := tx.events[id]; ok {
		return e.Clone(), nil
	}

	defer tx.rlock()()
	e, ok := tx.repo.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
	}
	return e.Clone(), nil
}

func (tx *memoryTx) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	if t, ok := tx.tickets[id]; ok {
		return t.Clone(), nil
	}

	defer tx.rlock()()
	t, ok := tx.repo.tickets[id]
	if !ok {
		return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
	}
	return t.Clone(), nil
}

func (tx *memoryTx) PutEvent(ctx context.Context, event *domain.Event) error {
	if !tx.writable {
		return ErrReadOnly
	}

	var current int64
	if staged, ok := tx.events[event.ID]; ok {
		current = staged.Version
	} else {
		unlock := tx.rlock()
		current = tx.repo.currentEventVersion(event.ID)
		unlock()
	}
	if err := checkVersion(current, event.Version); err != nil {
		return fmt.Errorf("put event %s: %w", event.ID, err)
	}

	if _, ok := tx.eventVersions[event.ID]; !ok {
		tx.eventVersions[event.ID] = event.Version
	}
	event.Version++
	tx.events[event.ID] = event.Clone()
	return nil
}

func (tx *memoryTx) PutTicket(ctx context.Context, ticket *domain.Ticket) error {
	if !tx.writable {
		return ErrReadOnly
	}

	var current int64
	staged, isStaged := tx.tickets[ticket.ID]
	if isStaged {
		current = staged.Version
	} else {
		unlock := tx.rlock()
		current = tx.repo.currentTicketVersion(ticket.ID)
		unlock()
	}
	if err := checkVersion(current, ticket.Version); err != nil {
		return fmt.Errorf("put ticket %s: %w", ticket.ID, err)
	}

	if !isStaged {
		tx.ticketBase[ticket.ID] = ticket.Version
		tx.ticketOrder = append(tx.ticketOrder, ticket.ID)
	}
	ticket.Version++
	tx.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (tx *memoryTx) PutTickets(ctx context.Context, tickets []*domain.Ticket) error {
	for _, t := range tickets {
		if err := tx.PutTicket(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (tx *memoryTx) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	unlock := tx.rlock()
	out := make([]*domain.Event, 0, len(tx.repo.events)+len(tx.events))
	for id, e := range tx.repo.events {
		if _, ok := tx.events[id]; ok {
			continue
		}
		out = append(out, e.Clone())
	}
	unlock()

	for _, e := range tx.events {
		out = append(out, e.Clone())
	}
	sortEvents(out)
	return out, nil
}

func (tx *memoryTx) ListTicketsByEvent(ctx context.Context, eventID string) ([]*domain.Ticket, error) {
	unlock := tx.rlock()
	out := make([]*domain.Ticket, 0, len(tx.repo.eventTickets[eventID]))
	for id := range tx.repo.eventTickets[eventID] {
		if _, ok := tx.tickets[id]; ok {
			continue
		}
		out = append(out, tx.repo.tickets[id].Clone())
	}
	unlock()

	for _, t := range tx.tickets {
		if t.EventID == eventID {
			out = append(out, t.Clone())
		}
	}
	sortTickets(out)
	return out, nil
}

func (tx *memoryTx) ListTicketsByHolder(ctx context.Context, holder string) ([]*domain.Ticket, error) {
	out := []*domain.Ticket{}
	if holder == "" {
		return out, nil
	}

	unlock := tx.rlock()
	for id := range tx.repo.holders[holder] {
		if _, ok := tx.tickets[id]; ok {
			continue
		}
		out = append(out, tx.repo.tickets[id].Clone())
	}
	unlock()

	for _, t := range tx.tickets {
		if t.Holder == holder {
			out = append(out, t.Clone())
		}
	}
	sortTickets(out)
	return out, nil
}
