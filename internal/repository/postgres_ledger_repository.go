package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/fhayvy/CodeEntry/internal/domain"
	"github.com/fhayvy/CodeEntry/internal/repository/migrations"
	"github.com/fhayvy/CodeEntry/pkg/database"
	"github.com/fhayvy/CodeEntry/pkg/telemetry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	pgEventColumns  = `id, name, event_date, ticket_price, max_capacity, tickets_sold, status, owner, version, created_at, updated_at`
	pgTicketColumns = `id, event_id, idx, holder, status, purchase_price, escrow_tx_id, refunded_to, version, created_at, updated_at`
)

var pgTicketCopyColumns = []string{
	"id", "event_id", "idx", "holder", "status", "purchase_price",
	"escrow_tx_id", "refunded_to", "version", "created_at", "updated_at",
}

// PostgresLedgerRepository implements LedgerRepository using PostgreSQL with pgxpool
type PostgresLedgerRepository struct {
	db *database.PostgresDB
}

// NewPostgresLedgerRepository creates a new PostgresLedgerRepository
func NewPostgresLedgerRepository(db *database.PostgresDB) *PostgresLedgerRepository {
	return &PostgresLedgerRepository{db: db}
}

// EnsureSchema applies the embedded ledger schema. Statements are idempotent.
func (r *PostgresLedgerRepository) EnsureSchema(ctx context.Context) error {
	files, err := fs.Glob(migrations.PostgresFS, "postgres/*.sql")
	if err != nil {
		return fmt.Errorf("list postgres migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := fs.ReadFile(migrations.PostgresFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if err := r.db.ExecScript(ctx, database.ExtractUpMigration(string(content))); err != nil {
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
	}
	return nil
}

// View runs fn inside a read-only REPEATABLE READ transaction, so all of
// its reads come from one snapshot
func (r *PostgresLedgerRepository) View(ctx context.Context, fn func(tx LedgerTx) error) error {
	return r.db.InTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		return fn(&postgresTx{tx: tx})
	})
}

// Update runs fn in one transaction, committed iff fn returns nil. Reads
// inside fn lock the rows they return.
func (r *PostgresLedgerRepository) Update(ctx context.Context, fn func(tx LedgerTx) error) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ledger.update")
	defer span.End()

	var fnErr error
	err := r.db.InTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		fnErr = fn(&postgresTx{tx: tx, writable: true})
		return fnErr
	})
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
		return nil
	case fnErr != nil:
		// rejections and errors from fn pass through untouched
		return fnErr
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("update: %w", translatePgError(err))
	}
}

// Snapshot returns the committed state
func (r *PostgresLedgerRepository) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := r.View(ctx, func(tx LedgerTx) error {
		var err error
		snap, err = collectSnapshot(ctx, tx)
		return err
	})
	return snap, err
}

// Ping checks the pool
func (r *PostgresLedgerRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// Close is a no-op; the pool is owned by the caller
func (r *PostgresLedgerRepository) Close() error {
	return nil
}

type postgresTx struct {
	tx       pgx.Tx
	writable bool
}

func (t *postgresTx) lockClause() string {
	if t.writable {
		return " FOR UPDATE"
	}
	return ""
}

func (t *postgresTx) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+pgEventColumns+` FROM ledger_events WHERE id = $1`+t.lockClause(), id)
	e, err := scanPgEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return e, nil
}

func (t *postgresTx) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+pgTicketColumns+` FROM ledger_tickets WHERE id = $1`+t.lockClause(), id)
	tk, err := scanPgTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return tk, nil
}

func (t *postgresTx) PutEvent(ctx context.Context, e *domain.Event) error {
	if !t.writable {
		return ErrReadOnly
	}

	next := e.Version + 1
	if e.Version == 0 {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO ledger_events (`+pgEventColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			e.ID, e.Name, e.Date, e.TicketPrice, e.MaxCapacity, e.TicketsSold, string(e.Status), e.Owner,
			next, e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("put event %s: %w", e.ID, translatePgError(err))
		}
		e.Version = next
		return nil
	}

	tag, err := t.tx.Exec(ctx, `
		UPDATE ledger_events
		SET name = $1, event_date = $2, ticket_price = $3, max_capacity = $4, tickets_sold = $5,
			status = $6, owner = $7, version = $8, updated_at = $9
		WHERE id = $10 AND version = $11
	`, e.Name, e.Date, e.TicketPrice, e.MaxCapacity, e.TicketsSold, string(e.Status), e.Owner,
		next, e.UpdatedAt, e.ID, e.Version)
	if err != nil {
		return fmt.Errorf("put event %s: %w", e.ID, translatePgError(err))
	}
	if err := t.checkUpdated(ctx, tag, "ledger_events", e.ID); err != nil {
		return fmt.Errorf("put event %s: %w", e.ID, err)
	}
	e.Version = next
	return nil
}

func (t *postgresTx) PutTicket(ctx context.Context, tk *domain.Ticket) error {
	if !t.writable {
		return ErrReadOnly
	}

	next := tk.Version + 1
	if tk.Version == 0 {
		_, err := t.tx.Exec(ctx,
			`INSERT INTO ledger_tickets (`+pgTicketColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			tk.ID, tk.EventID, tk.Index, tk.Holder, string(tk.Status), tk.PurchasePrice, tk.EscrowTxID, tk.RefundedTo,
			next, tk.CreatedAt, tk.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("put ticket %s: %w", tk.ID, translatePgError(err))
		}
		tk.Version = next
		return nil
	}

	tag, err := t.tx.Exec(ctx, `
		UPDATE ledger_tickets
		SET holder = $1, status = $2, purchase_price = $3, escrow_tx_id = $4, refunded_to = $5,
			version = $6, updated_at = $7
		WHERE id = $8 AND version = $9
	`, tk.Holder, string(tk.Status), tk.PurchasePrice, tk.EscrowTxID, tk.RefundedTo,
		next, tk.UpdatedAt, tk.ID, tk.Version)
	if err != nil {
		return fmt.Errorf("put ticket %s: %w", tk.ID, translatePgError(err))
	}
	if err := t.checkUpdated(ctx, tag, "ledger_tickets", tk.ID); err != nil {
		return fmt.Errorf("put ticket %s: %w", tk.ID, err)
	}
	tk.Version = next
	return nil
}

// PutTickets copies fresh tickets in one COPY round trip and falls back to
// per-row puts when any ticket is an update
func (t *postgresTx) PutTickets(ctx context.Context, tickets []*domain.Ticket) error {
	if !t.writable {
		return ErrReadOnly
	}

	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ledger.put_tickets")
	defer span.End()
	span.SetAttributes(attribute.Int("ticket_count", len(tickets)))

	for _, tk := range tickets {
		if tk.Version != 0 {
			for _, tk := range tickets {
				if err := t.PutTicket(ctx, tk); err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
					return err
				}
			}
			return nil
		}
	}

	_, err := t.tx.CopyFrom(ctx, pgx.Identifier{"ledger_tickets"}, pgTicketCopyColumns,
		pgx.CopyFromSlice(len(tickets), func(i int) ([]any, error) {
			tk := tickets[i]
			return []any{
				tk.ID, tk.EventID, tk.Index, tk.Holder, string(tk.Status), tk.PurchasePrice,
				tk.EscrowTxID, tk.RefundedTo, int64(1), tk.CreatedAt, tk.UpdatedAt,
			}, nil
		}),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("copy tickets: %w", translatePgError(err))
	}

	for _, tk := range tickets {
		tk.Version = 1
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

func (t *postgresTx) checkUpdated(ctx context.Context, tag pgconn.CommandTag, table, id string) error {
	if tag.RowsAffected() > 0 {
		return nil
	}

	var found int
	err := t.tx.QueryRow(ctx, `SELECT 1 FROM `+table+` WHERE id = $1`, id).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrConflict
}

func (t *postgresTx) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+pgEventColumns+` FROM ledger_events ORDER BY id COLLATE "C"`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []*domain.Event{}
	for rows.Next() {
		e, err := scanPgEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (t *postgresTx) ListTicketsByEvent(ctx context.Context, eventID string) ([]*domain.Ticket, error) {
	return t.queryTickets(ctx, `SELECT `+pgTicketColumns+` FROM ledger_tickets WHERE event_id = $1 ORDER BY idx`, eventID)
}

func (t *postgresTx) ListTicketsByHolder(ctx context.Context, holder string) ([]*domain.Ticket, error) {
	if strings.TrimSpace(holder) == "" {
		return []*domain.Ticket{}, nil
	}
	return t.queryTickets(ctx,
		`SELECT `+pgTicketColumns+` FROM ledger_tickets WHERE holder = $1 ORDER BY event_id COLLATE "C", idx`, holder)
}

func (t *postgresTx) queryTickets(ctx context.Context, query, arg string) ([]*domain.Ticket, error) {
	rows, err := t.tx.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := []*domain.Ticket{}
	for rows.Next() {
		tk, err := scanPgTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, tk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return tickets, nil
}

func scanPgEvent(row pgx.Row) (*domain.Event, error) {
	var (
		e      domain.Event
		status string
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Date, &e.TicketPrice, &e.MaxCapacity, &e.TicketsSold,
		&status, &e.Owner, &e.Version, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Status = domain.EventStatus(status)
	return &e, nil
}

func scanPgTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		tk     domain.Ticket
		status string
	)
	if err := row.Scan(&tk.ID, &tk.EventID, &tk.Index, &tk.Holder, &status, &tk.PurchasePrice,
		&tk.EscrowTxID, &tk.RefundedTo, &tk.Version, &tk.CreatedAt, &tk.UpdatedAt); err != nil {
		return nil, err
	}
	tk.Status = domain.TicketStatus(status)
	return &tk, nil
}

// translatePgError maps constraint violations onto domain errors
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", domain.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}
