package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fhayvy/CodeEntry/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerAddr = "ST1610AB9FVHNGWAX78AA5BER2Z2B05JH8G4RST3M"
	buyerAddr = "ST1PVT3S8T3CQCNKPHDXMXPB2AQK7ZM8Q83RJ5Q1T"
	otherAddr = "ST162DP879GKXH7PYB4KGR2P19DRY0WDHABXF30Z2"
)

var errAbort = errors.New("abort")

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestEvent(id string, capacity int) *domain.Event {
	return &domain.Event{
		ID:          id,
		Name:        "Summit " + id,
		Date:        "2024-12-15",
		TicketPrice: 500,
		MaxCapacity: capacity,
		Status:      domain.EventStatusActive,
		Owner:       ownerAddr,
		CreatedAt:   fixedNow,
		UpdatedAt:   fixedNow,
	}
}

func newTestTickets(eventID string, n int) []*domain.Ticket {
	tickets := make([]*domain.Ticket, 0, n)
	for i := 0; i < n; i++ {
		tickets = append(tickets, domain.NewMintedTicket(eventID, i, fixedNow))
	}
	return tickets
}

// seedEvent stores an event with n minted tickets
func seedEvent(t *testing.T, repo LedgerRepository, id string, n int) {
	t.Helper()
	err := repo.Update(context.Background(), func(tx LedgerTx) error {
		ctx := context.Background()
		if err := tx.PutEvent(ctx, newTestEvent(id, n)); err != nil {
			return err
		}
		return tx.PutTickets(ctx, newTestTickets(id, n))
	})
	require.NoError(t, err)
}

func digestOf(t *testing.T, repo LedgerRepository) string {
	t.Helper()
	snap, err := repo.Snapshot(context.Background())
	require.NoError(t, err)
	digest, err := snap.Digest()
	require.NoError(t, err)
	return digest
}

// runLedgerContract exercises the behaviour every LedgerRepository must share
func runLedgerContract(t *testing.T, newRepo func(t *testing.T) LedgerRepository) {
	t.Run("insert and get event", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		event := newTestEvent("evt-1", 3)
		err := repo.Update(ctx, func(tx LedgerTx) error {
			return tx.PutEvent(ctx, event)
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), event.Version)

		err = repo.View(ctx, func(tx LedgerTx) error {
			got, err := tx.GetEvent(ctx, "evt-1")
			require.NoError(t, err)
			assert.Equal(t, "Summit evt-1", got.Name)
			assert.Equal(t, "2024-12-15", got.Date)
			assert.Equal(t, int64(500), got.TicketPrice)
			assert.Equal(t, 3, got.MaxCapacity)
			assert.Equal(t, 0, got.TicketsSold)
			assert.Equal(t, domain.EventStatusActive, got.Status)
			assert.Equal(t, ownerAddr, got.Owner)
			assert.Equal(t, int64(1), got.Version)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("unknown ids are not found", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		err := repo.View(ctx, func(tx LedgerTx) error {
			_, err := tx.GetEvent(ctx, "missing")
			assert.ErrorIs(t, err, domain.ErrNotFound)
			_, err = tx.GetTicket(ctx, "missing#0")
			assert.ErrorIs(t, err, domain.ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("duplicate event is a conflict", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		seedEvent(t, repo, "evt-1", 1)

		err := repo.Update(ctx, func(tx LedgerTx) error {
			return tx.PutEvent(ctx, newTestEvent("evt-1", 5))
		})
		assert.ErrorIs(t, err, domain.ErrConflict)

		err = repo.View(ctx, func(tx LedgerTx) error {
			got, err := tx.GetEvent(ctx, "evt-1")
			require.NoError(t, err)
			assert.Equal(t, 1, got.MaxCapacity)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("duplicate ticket is a conflict", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		seedEvent(t, repo, "evt-1", 2)

		err := repo.Update(ctx, func(tx LedgerTx) error {
			return tx.PutTicket(ctx, domain.NewMintedTicket("evt-1", 1, fixedNow))
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("versioned update", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		seedEvent(t, repo, "evt-1", 2)

		err := repo.Update(ctx, func(tx LedgerTx) error {
			ticket, err := tx.GetTicket(ctx, "evt-1#0")
			if err != nil {
				return err
			}
			ticket.Status = domain.TicketStatusSold
			ticket.Holder = buyerAddr
			ticket.PurchasePrice = 500
			if err := tx.PutTicket(ctx, ticket); err != nil {
				return err
			}
			assert.Equal(t, int64(2), ticket.Version)

			event, err := tx.GetEvent(ctx, "evt-1")
			if err != nil {
				return err
			}
			event.TicketsSold++
			return tx.PutEvent(ctx, event)
		})
		require.NoError(t, err)

		err = repo.View(ctx, func(tx LedgerTx) error {
			ticket, err := tx.GetTicket(ctx, "evt-1#0")
			require.NoError(t, err)
			assert.Equal(t, domain.TicketStatusSold, ticket.Status)
			assert.Equal(t, buyerAddr, ticket.Holder)
			assert.Equal(t, int64(2), ticket.Version)

			event, err := tx.GetEvent(ctx, "evt-1")
			require.NoError(t, err)
			assert.Equal(t, 1, event.TicketsSold)
			assert.Equal(t, int64(2), event.Version)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		seedEvent(t, repo, "evt-1", 1)

		var stale *domain.Event
		err := repo.View(ctx, func(tx LedgerTx) error {
			var err error
			stale, err = tx.GetEvent(ctx, "evt-1")
			return err
		})
		require.NoError(t, err)

		err = repo.Update(ctx, func(tx LedgerTx) error {
			fresh, err := tx.GetEvent(ctx, "evt-1")
			if err != nil {
				return err
			}
			fresh.Status = domain.EventStatusCanceled
			return tx.PutEvent(ctx, fresh)
		})
		require.NoError(t, err)

		err = repo.Update(ctx, func(tx LedgerTx) error {
			stale.Name = "Renamed"
			return tx.PutEvent(ctx, stale)
		})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("update of missing record is not found", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		ghost := newTestEvent("ghost", 1)
		ghost.Version = 3
		err := repo.Update(ctx, func(tx LedgerTx) error {
			return tx.PutEvent(ctx, ghost)
		})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("failed update leaves no trace", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		seedEvent(t, repo, "evt-1", 2)
		before := digestOf(t, repo)

		err := repo.Update(ctx, func(tx LedgerTx) error {
			if err := tx.PutEvent(ctx, newTestEvent("evt-2", 1)); err != nil {
				return err
			}
			ticket, err := tx.GetTicket(ctx, "evt-1#1")
			if err != nil {
				return err
			}
			ticket.Status = domain.TicketStatusSold
			ticket.Holder = buyerAddr
			if err := tx.PutTicket(ctx, ticket); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)
		assert.Equal(t, before, digestOf(t, repo))

		err = repo.View(ctx, func(tx LedgerTx) error {
			_, err := tx.GetEvent(ctx, "evt-2")
			assert.ErrorIs(t, err, domain.ErrNotFound)
			held, err := tx.ListTicketsByHolder(ctx, buyerAddr)
			require.NoError(t, err)
			assert.Empty(t, held)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("writes are visible inside their own update", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		err := repo.Update(ctx, func(tx LedgerTx) error {
			if err := tx.PutEvent(ctx, newTestEvent("evt-1", 2)); err != nil {
				return err
			}
			if err := tx.PutTickets(ctx, newTestTickets("evt-1", 2)); err != nil {
				return err
			}
			got, err := tx.GetEvent(ctx, "evt-1")
			if err != nil {
				return err
			}
			assert.Equal(t, int64(1), got.Version)
			tickets, err := tx.ListTicketsByEvent(ctx, "evt-1")
			if err != nil {
				return err
			}
			assert.Len(t, tickets, 2)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("view is read-only", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		err := repo.View(ctx, func(tx LedgerTx) error {
			return tx.PutEvent(ctx, newTestEvent("evt-1", 1))
		})
		assert.ErrorIs(t, err, ErrReadOnly)
	})

	t.Run("listing order", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		seedEvent(t, repo, "evt-b", 12)
		seedEvent(t, repo, "evt-a", 2)

		err := repo.Update(ctx, func(tx LedgerTx) error {
			for _, id := range []string{"evt-b#10", "evt-b#2", "evt-a#1"} {
				ticket, err := tx.GetTicket(ctx, id)
				if err != nil {
					return err
				}
				ticket.Status = domain.TicketStatusSold
				ticket.Holder = buyerAddr
				if err := tx.PutTicket(ctx, ticket); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)

		err = repo.View(ctx, func(tx LedgerTx) error {
			events, err := tx.ListEvents(ctx)
			require.NoError(t, err)
			require.Len(t, events, 2)
			assert.Equal(t, "evt-a", events[0].ID)
			assert.Equal(t, "evt-b", events[1].ID)

			tickets, err := tx.ListTicketsByEvent(ctx, "evt-b")
			require.NoError(t, err)
			require.Len(t, tickets, 12)
			for i, tk := range tickets {
				assert.Equal(t, i, tk.Index)
			}

			held, err := tx.ListTicketsByHolder(ctx, buyerAddr)
			require.NoError(t, err)
			ids := make([]string, 0, len(held))
			for _, tk := range held {
				ids = append(ids, tk.ID)
			}
			assert.Equal(t, []string{"evt-a#1", "evt-b#2", "evt-b#10"}, ids)

			none, err := tx.ListTicketsByHolder(ctx, otherAddr)
			require.NoError(t, err)
			assert.NotNil(t, none)
			assert.Empty(t, none)

			unheld, err := tx.ListTicketsByHolder(ctx, "")
			require.NoError(t, err)
			assert.Empty(t, unheld)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("holder index follows transfers", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		seedEvent(t, repo, "evt-1", 1)

		for _, holder := range []string{buyerAddr, otherAddr} {
			err := repo.Update(ctx, func(tx LedgerTx) error {
				ticket, err := tx.GetTicket(ctx, "evt-1#0")
				if err != nil {
					return err
				}
				ticket.Status = domain.TicketStatusSold
				ticket.Holder = holder
				return tx.PutTicket(ctx, ticket)
			})
			require.NoError(t, err)
		}

		err := repo.View(ctx, func(tx LedgerTx) error {
			fromBuyer, err := tx.ListTicketsByHolder(ctx, buyerAddr)
			require.NoError(t, err)
			assert.Empty(t, fromBuyer)

			fromOther, err := tx.ListTicketsByHolder(ctx, otherAddr)
			require.NoError(t, err)
			require.Len(t, fromOther, 1)
			assert.Equal(t, int64(3), fromOther[0].Version)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("returned records are copies", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		seedEvent(t, repo, "evt-1", 1)

		err := repo.View(ctx, func(tx LedgerTx) error {
			got, err := tx.GetEvent(ctx, "evt-1")
			require.NoError(t, err)
			got.Name = "mutated"

			again, err := tx.GetEvent(ctx, "evt-1")
			require.NoError(t, err)
			assert.Equal(t, "Summit evt-1", again.Name)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("snapshot", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		seedEvent(t, repo, "evt-2", 2)
		seedEvent(t, repo, "evt-1", 3)

		snap, err := repo.Snapshot(ctx)
		require.NoError(t, err)
		require.Len(t, snap.Events, 2)
		require.Len(t, snap.Tickets, 5)
		assert.Equal(t, "evt-1", snap.Events[0].ID)
		assert.Equal(t, "evt-1#0", snap.Tickets[0].ID)
		assert.Equal(t, "evt-2#1", snap.Tickets[4].ID)
	})

	t.Run("view reads one snapshot", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		seedEvent(t, repo, "evt-1", 2)

		committed := make(chan error, 1)
		err := repo.View(ctx, func(tx LedgerTx) error {
			first, err := tx.GetEvent(ctx, "evt-1")
			require.NoError(t, err)

			go func() {
				committed <- repo.Update(ctx, func(tx2 LedgerTx) error {
					event, err := tx2.GetEvent(ctx, "evt-1")
					if err != nil {
						return err
					}
					event.TicketsSold++
					return tx2.PutEvent(ctx, event)
				})
			}()
			// Stores that block writers behind readers commit after the
			// view; the others commit now. Either way the view must not see it.
			var done bool
			select {
			case err := <-committed:
				require.NoError(t, err)
				done = true
			case <-time.After(200 * time.Millisecond):
			}

			second, err := tx.GetEvent(ctx, "evt-1")
			require.NoError(t, err)
			assert.Equal(t, first.TicketsSold, second.TicketsSold)
			if done {
				committed <- nil
			}
			return nil
		})
		require.NoError(t, err)
		require.NoError(t, <-committed)

		err = repo.View(ctx, func(tx LedgerTx) error {
			event, err := tx.GetEvent(ctx, "evt-1")
			require.NoError(t, err)
			assert.Equal(t, 1, event.TicketsSold)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("ping", func(t *testing.T) {
		repo := newRepo(t)
		assert.NoError(t, repo.Ping(context.Background()))
	})
}

func TestMemoryLedgerRepository_Contract(t *testing.T) {
	runLedgerContract(t, func(t *testing.T) LedgerRepository {
		repo := NewMemoryLedgerRepository()
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	})
}

func TestMemoryLedgerRepository_Closed(t *testing.T) {
	repo := NewMemoryLedgerRepository()
	require.NoError(t, repo.Close())

	ctx := context.Background()
	assert.Error(t, repo.Ping(ctx))
	assert.Error(t, repo.View(ctx, func(tx LedgerTx) error { return nil }))
	assert.Error(t, repo.Update(ctx, func(tx LedgerTx) error { return nil }))
}

func TestMemoryLedgerRepository_ConcurrentCommitConflict(t *testing.T) {
	repo := NewMemoryLedgerRepository()
	ctx := context.Background()
	seedEvent(t, repo, "evt-1", 1)

	// A second writer commits between the first writer's read and commit
	err := repo.Update(ctx, func(tx LedgerTx) error {
		event, err := tx.GetEvent(ctx, "evt-1")
		if err != nil {
			return err
		}

		inner := repo.Update(ctx, func(tx2 LedgerTx) error {
			e, err := tx2.GetEvent(ctx, "evt-1")
			if err != nil {
				return err
			}
			e.Name = "first"
			return tx2.PutEvent(ctx, e)
		})
		require.NoError(t, inner)

		event.Name = "second"
		return tx.PutEvent(ctx, event)
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	err = repo.View(ctx, func(tx LedgerTx) error {
		got, err := tx.GetEvent(ctx, "evt-1")
		require.NoError(t, err)
		assert.Equal(t, "first", got.Name)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryLedgerRepository_ViewSeesOneCommit(t *testing.T) {
	repo := NewMemoryLedgerRepository()
	ctx := context.Background()
	seedEvent(t, repo, "evt-1", 2)

	sell := func(tx LedgerTx) error {
		event, err := tx.GetEvent(ctx, "evt-1")
		if err != nil {
			return err
		}
		ticket, err := tx.GetTicket(ctx, "evt-1#0")
		if err != nil {
			return err
		}
		ticket.Status = domain.TicketStatusSold
		ticket.Holder = buyerAddr
		event.TicketsSold++
		if err := tx.PutTicket(ctx, ticket); err != nil {
			return err
		}
		return tx.PutEvent(ctx, event)
	}

	committed := make(chan error, 1)
	err := repo.View(ctx, func(tx LedgerTx) error {
		first, err := tx.GetEvent(ctx, "evt-1")
		require.NoError(t, err)

		go func() { committed <- repo.Update(ctx, sell) }()
		select {
		case err := <-committed:
			assert.Fail(t, "update committed while a view was open", "err: %v", err)
		case <-time.After(50 * time.Millisecond):
		}

		second, err := tx.GetEvent(ctx, "evt-1")
		require.NoError(t, err)
		ticket, err := tx.GetTicket(ctx, "evt-1#0")
		require.NoError(t, err)
		assert.Equal(t, first.TicketsSold, second.TicketsSold)
		assert.Equal(t, domain.TicketStatusMinted, ticket.Status)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, <-committed)

	err = repo.View(ctx, func(tx LedgerTx) error {
		event, err := tx.GetEvent(ctx, "evt-1")
		require.NoError(t, err)
		ticket, err := tx.GetTicket(ctx, "evt-1#0")
		require.NoError(t, err)
		assert.Equal(t, 1, event.TicketsSold)
		assert.Equal(t, domain.TicketStatusSold, ticket.Status)
		return nil
	})
	require.NoError(t, err)
}
