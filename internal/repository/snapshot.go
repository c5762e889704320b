package repository

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/fhayvy/CodeEntry/internal/domain"
	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"
)

// digestKey separates ledger digests from any other BLAKE3 keyed use.
// ASCII "ticket-ledger.snapshot" zero-padded to 32 bytes.
var digestKey = [32]byte{
	't', 'i', 'c', 'k', 'e', 't', '-', 'l', 'e', 'd', 'g', 'e', 'r', '.',
	's', 'n', 'a', 'p', 's', 'h', 'o', 't',
}

// encMode uses Core Deterministic Encoding so equal state gives equal bytes
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("repository: CBOR encoder initialization failed: " + err.Error())
	}
}

// Snapshot is the full committed ledger state
type Snapshot struct {
	Events  []*domain.Event
	Tickets []*domain.Ticket
}

// snapshotEvent and snapshotTicket carry the ledger state that the digest
// covers. Audit timestamps are excluded.
type snapshotEvent struct {
	ID          string `cbor:"1,keyasint"`
	Name        string `cbor:"2,keyasint"`
	Date        string `cbor:"3,keyasint"`
	TicketPrice int64  `cbor:"4,keyasint"`
	MaxCapacity int    `cbor:"5,keyasint"`
	TicketsSold int    `cbor:"6,keyasint"`
	Status      string `cbor:"7,keyasint"`
	Owner       string `cbor:"8,keyasint"`
	Version     int64  `cbor:"9,keyasint"`
}

type snapshotTicket struct {
	ID            string `cbor:"1,keyasint"`
	EventID       string `cbor:"2,keyasint"`
	Index         int    `cbor:"3,keyasint"`
	Holder        string `cbor:"4,keyasint"`
	Status        string `cbor:"5,keyasint"`
	PurchasePrice int64  `cbor:"6,keyasint"`
	EscrowTxID    string `cbor:"7,keyasint"`
	RefundedTo    string `cbor:"8,keyasint"`
	Version       int64  `cbor:"9,keyasint"`
}

type snapshotBody struct {
	Events  []snapshotEvent  `cbor:"1,keyasint"`
	Tickets []snapshotTicket `cbor:"2,keyasint"`
}

// Encode returns the deterministic CBOR encoding of the snapshot
func (s *Snapshot) Encode() ([]byte, error) {
	body := snapshotBody{
		Events:  make([]snapshotEvent, 0, len(s.Events)),
		Tickets: make([]snapshotTicket, 0, len(s.Tickets)),
	}
	for _, e := range s.Events {
		body.Events = append(body.Events, snapshotEvent{
			ID:          e.ID,
			Name:        e.Name,
			Date:        e.Date,
			TicketPrice: e.TicketPrice,
			MaxCapacity: e.MaxCapacity,
			TicketsSold: e.TicketsSold,
			Status:      string(e.Status),
			Owner:       e.Owner,
			Version:     e.Version,
		})
	}
	for _, t := range s.Tickets {
		body.Tickets = append(body.Tickets, snapshotTicket{
			ID:            t.ID,
			EventID:       t.EventID,
			Index:         t.Index,
			Holder:        t.Holder,
			Status:        string(t.Status),
			PurchasePrice: t.PurchasePrice,
			EscrowTxID:    t.EscrowTxID,
			RefundedTo:    t.RefundedTo,
			Version:       t.Version,
		})
	}
	return encMode.Marshal(body)
}

// Digest returns the hex keyed BLAKE3 hash of the snapshot encoding
func (s *Snapshot) Digest() (string, error) {
	data, err := s.Encode()
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	hasher, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		return "", fmt.Errorf("init digest: %w", err)
	}
	_, _ = hasher.Write(data)

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// collectSnapshot reads every event and its tickets through tx
func collectSnapshot(ctx context.Context, tx LedgerTx) (*Snapshot, error) {
	events, err := tx.ListEvents(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Events: events}
	for _, e := range events {
		tickets, err := tx.ListTicketsByEvent(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		snap.Tickets = append(snap.Tickets, tickets...)
	}
	return snap, nil
}

func sortEvents(events []*domain.Event) {
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
}

func sortTickets(tickets []*domain.Ticket) {
	sort.Slice(tickets, func(i, j int) bool {
		if tickets[i].EventID != tickets[j].EventID {
			return tickets[i].EventID < tickets[j].EventID
		}
		return tickets[i].Index < tickets[j].Index
	})
}
