package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fhayvy/CodeEntry/internal/domain"
	"github.com/fhayvy/CodeEntry/internal/escrow"
	"github.com/fhayvy/CodeEntry/internal/metrics"
	"github.com/fhayvy/CodeEntry/internal/repository"
	"github.com/fhayvy/CodeEntry/internal/validator"
	"github.com/fhayvy/CodeEntry/pkg/logger"
	"github.com/fhayvy/CodeEntry/pkg/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Operation names used for spans, logs and metrics
const (
	OpMint     = "mint"
	OpPurchase = "purchase"
	OpTransfer = "transfer"
	OpCancel   = "cancel"
	OpRefund   = "refund"
)

// TicketService defines the ledger operations and their query surface
type TicketService interface {
	// MintTicket registers an event and mints its full ticket inventory
	MintTicket(ctx context.Context, params *MintParams) (string, error)

	// PurchaseTicket sells a minted ticket to buyer through escrow
	PurchaseTicket(ctx context.Context, ticketID, buyer string) (string, error)

	// TransferTicket moves a sold ticket from its holder to another address
	TransferTicket(ctx context.Context, ticketID, from, to string) (string, error)

	// CancelEvent cancels an event; only its owner may do so
	CancelEvent(ctx context.Context, eventID, caller string) (string, error)

	// RefundTicket releases the purchase price of a ticket of a canceled event
	RefundTicket(ctx context.Context, ticketID, claimant string) (string, error)

	// GetEvent retrieves a committed event
	GetEvent(ctx context.Context, eventID string) (*domain.Event, error)

	// GetTicket retrieves a committed ticket
	GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error)

	// ListTicketsByOwner lists tickets currently held by address
	ListTicketsByOwner(ctx context.Context, address string) ([]*domain.Ticket, error)

	// ListEvents lists every event ordered by id
	ListEvents(ctx context.Context) ([]*domain.Event, error)

	// ListTicketsByEvent lists an event's tickets ordered by index
	ListTicketsByEvent(ctx context.Context, eventID string) ([]*domain.Ticket, error)

	// LedgerDigest returns the digest of the committed ledger state
	LedgerDigest(ctx context.Context) (string, error)
}

// MintParams carries the arguments of mint-ticket
type MintParams struct {
	EventID     string `json:"event_id" validate:"eventid"`
	Name        string `json:"name" validate:"evname"`
	Date        string `json:"date" validate:"caldate"`
	Price       int64  `json:"price" validate:"gt=0"`
	MaxCapacity int    `json:"max_capacity" validate:"gt=0,mintcap"`
	Caller      string `json:"caller" validate:"required,stxaddr"`
}

// TicketServiceConfig contains configuration for the ticket service
type TicketServiceConfig struct {
	MaxMintCapacity int
	// IncludeDigest attaches the post-commit ledger digest to published events
	IncludeDigest bool
	// Now overrides the clock used for record timestamps
	Now func() time.Time
}

// ticketService implements TicketService. One writer mutex serializes every
// mutating operation from validation through commit, escrow included.
type ticketService struct {
	repo      repository.LedgerRepository
	escrow    escrow.Escrow
	publisher LedgerEventPublisher
	validate  *validator.Validator
	log       *logger.Logger

	includeDigest bool
	now           func() time.Time

	mu       sync.Mutex
	sequence uint64
	// attempts counts compensated purchase commits per ticket
	attempts map[string]uint32
}

// NewTicketService creates a new ticket service
func NewTicketService(
	repo repository.LedgerRepository,
	esc escrow.Escrow,
	publisher LedgerEventPublisher,
	log *logger.Logger,
	cfg *TicketServiceConfig,
) TicketService {
	if cfg == nil {
		cfg = &TicketServiceConfig{}
	}
	maxCapacity := cfg.MaxMintCapacity
	if maxCapacity <= 0 {
		maxCapacity = validator.DefaultMaxMintCapacity
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	if log == nil {
		log = logger.Get()
	}

	return &ticketService{
		repo:          repo,
		escrow:        esc,
		publisher:     publisher,
		validate:      validator.New(maxCapacity),
		log:           log.Named("ticket-service"),
		includeDigest: cfg.IncludeDigest,
		now:           func() time.Time { return now().UTC() },
		attempts:      make(map[string]uint32),
	}
}

// MintTicket creates the event and tickets event_id#0..max_capacity-1
func (s *ticketService) MintTicket(ctx context.Context, params *MintParams) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.mint")
	defer span.End()
	start := time.Now()

	if params == nil {
		return "", s.reject(ctx, span, OpMint, start, fmt.Errorf("%w: mint params are required", domain.ErrInvalidInput))
	}
	span.SetAttributes(
		attribute.String("event_id", params.EventID),
		attribute.Int("max_capacity", params.MaxCapacity),
	)

	evt, err := s.commit(ctx, func(ctx context.Context) (*domain.LedgerEvent, error) {
		if err := s.validate.Struct(ctx, params); err != nil {
			return nil, err
		}

		now := s.now()
		event := &domain.Event{
			ID:          params.EventID,
			Name:        params.Name,
			Date:        params.Date,
			TicketPrice: params.Price,
			MaxCapacity: params.MaxCapacity,
			Status:      domain.EventStatusActive,
			Owner:       params.Caller,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		tickets := make([]*domain.Ticket, 0, params.MaxCapacity)
		for i := 0; i < params.MaxCapacity; i++ {
			tickets = append(tickets, domain.NewMintedTicket(params.EventID, i, now))
		}

		err := s.repo.Update(ctx, func(tx repository.LedgerTx) error {
			if _, err := tx.GetEvent(ctx, params.EventID); err == nil {
				return fmt.Errorf("event %s: %w", params.EventID, domain.ErrConflict)
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if err := tx.PutEvent(ctx, event); err != nil {
				return err
			}
			return tx.PutTickets(ctx, tickets)
		})
		if err != nil {
			return nil, err
		}

		return &domain.LedgerEvent{
			Type:    domain.LedgerEventMinted,
			EventID: event.ID,
			Actor:   params.Caller,
			Amount:  event.TicketPrice,
		}, nil
	})
	if err != nil {
		return "", s.reject(ctx, span, OpMint, start, err)
	}

	metrics.RecordMint(ctx, params.MaxCapacity)
	s.succeed(ctx, span, OpMint, start, evt)
	return params.EventID, nil
}

// PurchaseTicket checks NotFound, EventCanceled, AlreadySold, SoldOut, then commits escrow
func (s *ticketService) PurchaseTicket(ctx context.Context, ticketID, buyer string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.purchase")
	defer span.End()
	start := time.Now()

	span.SetAttributes(
		attribute.String("ticket_id", ticketID),
		attribute.String("buyer", buyer),
	)

	evt, err := s.commit(ctx, func(ctx context.Context) (*domain.LedgerEvent, error) {
		if err := validator.Address(buyer); err != nil {
			return nil, fmt.Errorf("buyer: %w", err)
		}

		var (
			receipt *escrow.Receipt
			ticket  *domain.Ticket
		)
		// Once escrow has moved money the caller's cancellation no longer
		// applies: the commit, or the compensation, must run to the end.
		settleCtx := context.WithoutCancel(ctx)
		err := s.repo.Update(settleCtx, func(tx repository.LedgerTx) error {
			var (
				event *domain.Event
				err   error
			)
			ticket, event, err = s.loadTicket(settleCtx, tx, ticketID)
			if err != nil {
				return err
			}
			if event.IsCanceled() {
				return fmt.Errorf("event %s: %w", event.ID, domain.ErrEventCanceled)
			}
			if ticket.Status != domain.TicketStatusMinted {
				return fmt.Errorf("ticket %s: %w", ticket.ID, domain.ErrAlreadySold)
			}
			if event.SoldOut() {
				return fmt.Errorf("event %s: %w", event.ID, domain.ErrSoldOut)
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			receipt, err = s.escrowCommit(settleCtx, &escrow.CommitRequest{
				Amount:         event.TicketPrice,
				From:           buyer,
				Reference:      ticket.ID,
				IdempotencyKey: s.purchaseKey(ticket, buyer),
			})
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
			}

			now := s.now()
			ticket.Status = domain.TicketStatusSold
			ticket.Holder = buyer
			ticket.PurchasePrice = event.TicketPrice
			ticket.EscrowTxID = receipt.TxID
			ticket.UpdatedAt = now
			event.TicketsSold++
			event.UpdatedAt = now

			if err := tx.PutTicket(settleCtx, ticket); err != nil {
				return err
			}
			return tx.PutEvent(settleCtx, event)
		})
		if err != nil {
			if receipt != nil {
				s.compensate(settleCtx, OpPurchase, ticketID, buyer, receipt, err)
			}
			return nil, err
		}
		s.forgetAttempts(ticketID)

		return &domain.LedgerEvent{
			Type:       domain.LedgerEventPurchased,
			EventID:    ticket.EventID,
			TicketID:   ticket.ID,
			Actor:      buyer,
			Amount:     ticket.PurchasePrice,
			EscrowTxID: receipt.TxID,
		}, nil
	})
	if err != nil {
		return "", s.reject(ctx, span, OpPurchase, start, err)
	}

	metrics.RecordSale(ctx)
	s.succeed(ctx, span, OpPurchase, start, evt)
	return ticketID, nil
}

// TransferTicket checks NotFound, NotOwner, InvalidRecipient, NotTransferable
func (s *ticketService) TransferTicket(ctx context.Context, ticketID, from, to string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.transfer")
	defer span.End()
	start := time.Now()

	span.SetAttributes(
		attribute.String("ticket_id", ticketID),
		attribute.String("from", from),
		attribute.String("to", to),
	)

	evt, err := s.commit(ctx, func(ctx context.Context) (*domain.LedgerEvent, error) {
		if err := validator.Address(from); err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}

		var ticket *domain.Ticket
		err := s.repo.Update(ctx, func(tx repository.LedgerTx) error {
			var err error
			ticket, _, err = s.loadTicket(ctx, tx, ticketID)
			if err != nil {
				return err
			}
			if !ticket.OwnedBy(from) {
				return fmt.Errorf("ticket %s: %w", ticket.ID, domain.ErrNotOwner)
			}
			if err := validator.Address(to); err != nil {
				return fmt.Errorf("%w: %v", domain.ErrInvalidRecipient, err)
			}
			if ticket.Status != domain.TicketStatusSold {
				return fmt.Errorf("ticket %s: %w", ticket.ID, domain.ErrNotTransferable)
			}

			ticket.Holder = to
			ticket.UpdatedAt = s.now()
			return tx.PutTicket(ctx, ticket)
		})
		if err != nil {
			return nil, err
		}

		return &domain.LedgerEvent{
			Type:     domain.LedgerEventTransferred,
			EventID:  ticket.EventID,
			TicketID: ticket.ID,
			Actor:    from,
			To:       to,
		}, nil
	})
	if err != nil {
		return "", s.reject(ctx, span, OpTransfer, start, err)
	}

	metrics.RecordTransfer(ctx)
	s.succeed(ctx, span, OpTransfer, start, evt)
	return ticketID, nil
}

// CancelEvent checks NotFound, NotOwner, AlreadyCanceled
func (s *ticketService) CancelEvent(ctx context.Context, eventID, caller string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.cancel")
	defer span.End()
	start := time.Now()

	span.SetAttributes(
		attribute.String("event_id", eventID),
		attribute.String("caller", caller),
	)

	evt, err := s.commit(ctx, func(ctx context.Context) (*domain.LedgerEvent, error) {
		if err := validator.Address(caller); err != nil {
			return nil, fmt.Errorf("caller: %w", err)
		}

		err := s.repo.Update(ctx, func(tx repository.LedgerTx) error {
			event, err := tx.GetEvent(ctx, eventID)
			if err != nil {
				return err
			}
			if event.Owner != caller {
				return fmt.Errorf("event %s: %w", event.ID, domain.ErrNotOwner)
			}
			if event.IsCanceled() {
				return fmt.Errorf("event %s: %w", event.ID, domain.ErrAlreadyCanceled)
			}

			event.Status = domain.EventStatusCanceled
			event.UpdatedAt = s.now()
			return tx.PutEvent(ctx, event)
		})
		if err != nil {
			return nil, err
		}

		return &domain.LedgerEvent{
			Type:    domain.LedgerEventCanceled,
			EventID: eventID,
			Actor:   caller,
		}, nil
	})
	if err != nil {
		return "", s.reject(ctx, span, OpCancel, start, err)
	}

	metrics.RecordCancel(ctx)
	s.succeed(ctx, span, OpCancel, start, evt)
	return eventID, nil
}

// RefundTicket checks NotFound, EventNotCanceled, NotOwner, AlreadyRefunded, then releases escrow
func (s *ticketService) RefundTicket(ctx context.Context, ticketID, claimant string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.refund")
	defer span.End()
	start := time.Now()

	span.SetAttributes(
		attribute.String("ticket_id", ticketID),
		attribute.String("claimant", claimant),
	)

	evt, err := s.commit(ctx, func(ctx context.Context) (*domain.LedgerEvent, error) {
		if err := validator.Address(claimant); err != nil {
			return nil, fmt.Errorf("claimant: %w", err)
		}

		var (
			receipt *escrow.Receipt
			ticket  *domain.Ticket
		)
		settleCtx := context.WithoutCancel(ctx)
		err := s.repo.Update(settleCtx, func(tx repository.LedgerTx) error {
			var (
				event *domain.Event
				err   error
			)
			ticket, event, err = s.loadTicket(settleCtx, tx, ticketID)
			if err != nil {
				return err
			}
			if !event.IsCanceled() {
				return fmt.Errorf("event %s: %w", event.ID, domain.ErrEventNotCanceled)
			}
			if !ticket.OwnedBy(claimant) {
				return fmt.Errorf("ticket %s: %w", ticket.ID, domain.ErrNotOwner)
			}
			if ticket.Status == domain.TicketStatusRefunded {
				return fmt.Errorf("ticket %s: %w", ticket.ID, domain.ErrAlreadyRefunded)
			}

			if err := ctx.Err(); err != nil {
				return err
			}

			// The key is stable per ticket, so a retry after a failed
			// commit replays the earlier release instead of paying twice.
			receipt, err = s.escrowRelease(settleCtx, &escrow.ReleaseRequest{
				Amount:         ticket.PurchasePrice,
				To:             claimant,
				Reference:      ticket.ID,
				CommitTxID:     ticket.EscrowTxID,
				IdempotencyKey: "refund:" + ticket.ID,
			})
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
			}

			ticket.Status = domain.TicketStatusRefunded
			ticket.Holder = ""
			ticket.RefundedTo = claimant
			ticket.UpdatedAt = s.now()
			return tx.PutTicket(settleCtx, ticket)
		})
		if err != nil {
			if receipt != nil {
				s.log.Error("refund released but ledger commit failed; a retry replays the release",
					zap.String("ticket_id", ticketID),
					zap.String("claimant", claimant),
					zap.String("escrow_tx_id", receipt.TxID),
					zap.Int64("amount", receipt.Amount),
					zap.Error(err),
				)
				metrics.RecordError(ctx, "refund_reconcile")
			}
			return nil, err
		}

		return &domain.LedgerEvent{
			Type:       domain.LedgerEventRefunded,
			EventID:    ticket.EventID,
			TicketID:   ticket.ID,
			Actor:      claimant,
			To:         claimant,
			Amount:     ticket.PurchasePrice,
			EscrowTxID: receipt.TxID,
		}, nil
	})
	if err != nil {
		return "", s.reject(ctx, span, OpRefund, start, err)
	}

	metrics.RecordRefund(ctx)
	s.succeed(ctx, span, OpRefund, start, evt)
	return ticketID, nil
}

// GetEvent retrieves a committed event
func (s *ticketService) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.get_event")
	defer span.End()

	var event *domain.Event
	err := s.repo.View(ctx, func(tx repository.LedgerTx) error {
		var err error
		event, err = tx.GetEvent(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	return event, nil
}

// GetTicket retrieves a committed ticket. Malformed ids are unknown ids.
func (s *ticketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.get_ticket")
	defer span.End()

	if _, _, err := domain.ParseTicketID(ticketID); err != nil {
		return nil, spanError(span, fmt.Errorf("ticket %s: %w", ticketID, domain.ErrNotFound))
	}

	var ticket *domain.Ticket
	err := s.repo.View(ctx, func(tx repository.LedgerTx) error {
		var err error
		ticket, err = tx.GetTicket(ctx, ticketID)
		return err
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	return ticket, nil
}

// ListTicketsByOwner lists held tickets; an unknown owner has none
func (s *ticketService) ListTicketsByOwner(ctx context.Context, address string) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.list_by_owner")
	defer span.End()

	var tickets []*domain.Ticket
	err := s.repo.View(ctx, func(tx repository.LedgerTx) error {
		var err error
		tickets, err = tx.ListTicketsByHolder(ctx, address)
		return err
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	span.SetAttributes(attribute.Int("ticket_count", len(tickets)))
	return tickets, nil
}

// ListEvents lists every event
func (s *ticketService) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.list_events")
	defer span.End()

	var events []*domain.Event
	err := s.repo.View(ctx, func(tx repository.LedgerTx) error {
		var err error
		events, err = tx.ListEvents(ctx)
		return err
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	return events, nil
}

// ListTicketsByEvent lists the tickets of an existing event
func (s *ticketService) ListTicketsByEvent(ctx context.Context, eventID string) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.list_by_event")
	defer span.End()

	var tickets []*domain.Ticket
	err := s.repo.View(ctx, func(tx repository.LedgerTx) error {
		if _, err := tx.GetEvent(ctx, eventID); err != nil {
			return err
		}
		var err error
		tickets, err = tx.ListTicketsByEvent(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, spanError(span, err)
	}
	return tickets, nil
}

// LedgerDigest returns the digest of the committed state
func (s *ticketService) LedgerDigest(ctx context.Context) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.digest")
	defer span.End()

	digest, err := s.digest(ctx)
	if err != nil {
		return "", spanError(span, err)
	}
	return digest, nil
}

// commit runs fn under the writer lock and stamps the resulting ledger
// event with its sequence number and, optionally, the new digest
func (s *ticketService) commit(ctx context.Context, fn func(ctx context.Context) (*domain.LedgerEvent, error)) (*domain.LedgerEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evt, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	s.sequence++
	evt.ID = uuid.New().String()
	evt.Sequence = s.sequence
	evt.OccurredAt = s.now()

	if s.includeDigest {
		digest, err := s.digest(context.WithoutCancel(ctx))
		if err != nil {
			s.log.Warn("failed to compute ledger digest",
				zap.String("type", string(evt.Type)),
				zap.Error(err),
			)
		} else {
			evt.Digest = digest
		}
	}
	return evt, nil
}

func (s *ticketService) digest(ctx context.Context) (string, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("snapshot ledger: %w", err)
	}
	return snap.Digest()
}

// loadTicket resolves a ticket and its event. A malformed id or a missing
// event is NotFound.
func (s *ticketService) loadTicket(ctx context.Context, tx repository.LedgerTx, ticketID string) (*domain.Ticket, *domain.Event, error) {
	if _, _, err := domain.ParseTicketID(ticketID); err != nil {
		return nil, nil, fmt.Errorf("ticket %s: %w", ticketID, domain.ErrNotFound)
	}
	ticket, err := tx.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	event, err := tx.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, event, nil
}

func (s *ticketService) escrowCommit(ctx context.Context, req *escrow.CommitRequest) (*escrow.Receipt, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.escrow_commit")
	defer span.End()
	start := time.Now()

	receipt, err := s.escrow.Commit(ctx, req)
	metrics.RecordEscrowCall(ctx, s.escrow.Name(), "commit", req.Amount, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, spanError(span, err)
	}
	span.SetAttributes(attribute.String("escrow_tx_id", receipt.TxID))
	return receipt, nil
}

func (s *ticketService) escrowRelease(ctx context.Context, req *escrow.ReleaseRequest) (*escrow.Receipt, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.ticket.escrow_release")
	defer span.End()
	start := time.Now()

	receipt, err := s.escrow.Release(ctx, req)
	metrics.RecordEscrowCall(ctx, s.escrow.Name(), "release", req.Amount, time.Since(start).Seconds(), err)
	if err != nil {
		return nil, spanError(span, err)
	}
	span.SetAttributes(attribute.String("escrow_tx_id", receipt.TxID))
	return receipt, nil
}

// compensate returns committed funds when the ledger write that should
// have followed the commit did not happen
func (s *ticketService) compensate(ctx context.Context, op, ticketID, buyer string, receipt *escrow.Receipt, cause error) {
	s.burnAttempt(ticketID)
	_, err := s.escrowRelease(ctx, &escrow.ReleaseRequest{
		Amount:         receipt.Amount,
		To:             buyer,
		Reference:      ticketID,
		CommitTxID:     receipt.TxID,
		IdempotencyKey: "compensate:" + receipt.TxID,
	})
	metrics.RecordCompensation(ctx, op, err == nil)
	if err != nil {
		s.log.Error("compensating escrow release failed; reconcile manually",
			zap.String("ticket_id", ticketID),
			zap.String("buyer", buyer),
			zap.String("escrow_tx_id", receipt.TxID),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	s.log.Warn("released escrow after failed ledger commit",
		zap.String("ticket_id", ticketID),
		zap.String("escrow_tx_id", receipt.TxID),
		zap.NamedError("cause", cause),
	)
}

// purchaseKey is the escrow idempotency key of a purchase attempt. It is
// stable across retries of the same attempt and moves on once a commit
// under it has been compensated, since that commit's funds are gone.
func (s *ticketService) purchaseKey(ticket *domain.Ticket, buyer string) string {
	return fmt.Sprintf("purchase:%s:v%d:%s:%d", ticket.ID, ticket.Version, buyer, s.attempts[ticket.ID])
}

// burnAttempt retires the current purchase key of a ticket. Caller holds mu.
func (s *ticketService) burnAttempt(ticketID string) {
	s.attempts[ticketID]++
}

// forgetAttempts drops the attempt counter once the ticket is sold. Caller holds mu.
func (s *ticketService) forgetAttempts(ticketID string) {
	delete(s.attempts, ticketID)
}

// succeed records a committed operation and publishes its ledger event
func (s *ticketService) succeed(ctx context.Context, span trace.Span, op string, start time.Time, evt *domain.LedgerEvent) {
	metrics.RecordOperation(ctx, op, time.Since(start).Seconds())

	span.AddEvent("ledger_committed", trace.WithAttributes(
		attribute.String("type", string(evt.Type)),
		attribute.Int64("sequence", int64(evt.Sequence)),
	))
	span.SetStatus(codes.Ok, "")

	s.log.Info("ledger operation committed",
		zap.String("operation", op),
		zap.String("type", string(evt.Type)),
		zap.Uint64("sequence", evt.Sequence),
		zap.String("event_id", evt.EventID),
		zap.String("ticket_id", evt.TicketID),
		zap.String("actor", evt.Actor),
	)

	if err := s.publisher.Publish(context.WithoutCancel(ctx), evt); err != nil {
		metrics.RecordPublishFailure(ctx, string(evt.Type))
		s.log.Warn("failed to publish ledger event",
			zap.String("type", string(evt.Type)),
			zap.Uint64("sequence", evt.Sequence),
			zap.Error(err),
		)
	}
}

// reject records a failed operation and returns err unchanged
func (s *ticketService) reject(ctx context.Context, span trace.Span, op string, start time.Time, err error) error {
	kind := domain.KindOf(err)
	span.SetAttributes(attribute.String("error_kind", string(kind)))

	if kind == domain.KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordError(ctx, op)
		s.log.Error("ledger operation failed",
			zap.String("operation", op),
			zap.Error(err),
		)
		return err
	}

	span.SetStatus(codes.Error, string(kind))
	metrics.RecordRejection(ctx, op, string(kind), time.Since(start).Seconds())
	s.log.Debug("ledger operation rejected",
		zap.String("operation", op),
		zap.String("kind", string(kind)),
		zap.Error(err),
	)
	return err
}

func spanError(span trace.Span, err error) error {
	if domain.KindOf(err) == domain.KindInternal {
		span.RecordError(err)
	}
	span.SetStatus(codes.Error, err.Error())
	return err
}
