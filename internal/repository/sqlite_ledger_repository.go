package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fhayvy/CodeEntry/internal/domain"
	"github.com/fhayvy/CodeEntry/internal/repository/migrations"
	"github.com/fhayvy/CodeEntry/pkg/database"
	"github.com/fhayvy/CodeEntry/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const (
	sqliteEventColumns  = `id, name, event_date, ticket_price, max_capacity, tickets_sold, status, owner, version, created_at, updated_at`
	sqliteTicketColumns = `id, event_id, idx, holder, status, purchase_price, escrow_tx_id, refunded_to, version, created_at, updated_at`
)

// SQLiteLedgerRepository stores the ledger in a single SQLite file
type SQLiteLedgerRepository struct {
	db *sql.DB
}

// OpenSQLiteLedgerRepository opens path and applies the embedded schema
func OpenSQLiteLedgerRepository(ctx context.Context, path string) (*SQLiteLedgerRepository, error) {
	db, err := database.OpenSQLite(path)
	if err != nil {
		return nil, err
	}

	repo, err := NewSQLiteLedgerRepository(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// NewSQLiteLedgerRepository wraps an open database and applies the schema
func NewSQLiteLedgerRepository(ctx context.Context, db *sql.DB) (*SQLiteLedgerRepository, error) {
	if err := database.ApplySQLiteMigrations(ctx, db, migrations.SQLiteFS, "sqlite"); err != nil {
		return nil, fmt.Errorf("migrate sqlite ledger: %w", err)
	}
	return &SQLiteLedgerRepository{db: db}, nil
}

// View runs fn inside a transaction that is always rolled back
func (r *SQLiteLedgerRepository) View(ctx context.Context, fn func(tx LedgerTx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sqlite view: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(&sqliteTx{tx: tx})
}

// Update runs fn in one transaction, committed iff fn returns nil
func (r *SQLiteLedgerRepository) Update(ctx context.Context, fn func(tx LedgerTx) error) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.sqlite.ledger.update")
	defer span.End()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("begin sqlite update: %w", err)
	}

	if err := fn(&sqliteTx{tx: tx, writable: true}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("commit sqlite update: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// Snapshot returns the committed state
func (r *SQLiteLedgerRepository) Snapshot(ctx context.Context) (*Snapshot, error) {
	var snap *Snapshot
	err := r.View(ctx, func(tx LedgerTx) error {
		var err error
		snap, err = collectSnapshot(ctx, tx)
		return err
	})
	return snap, err
}

// Ping checks the database handle
func (r *SQLiteLedgerRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database
func (r *SQLiteLedgerRepository) Close() error {
	return r.db.Close()
}

type sqliteTx struct {
	tx       *sql.Tx
	writable bool
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (t *sqliteTx) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+sqliteEventColumns+` FROM ledger_events WHERE id = ?`, id)
	e, err := scanSQLiteEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return e, nil
}

func (t *sqliteTx) GetTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	row := t.tx.QueryRowContext(ctx, `SELECT `+sqliteTicketColumns+` FROM ledger_tickets WHERE id = ?`, id)
	tk, err := scanSQLiteTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticket %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get ticket %s: %w", id, err)
	}
	return tk, nil
}

func (t *sqliteTx) PutEvent(ctx context.Context, e *domain.Event) error {
	if !t.writable {
		return ErrReadOnly
	}

	next := e.Version + 1
	if e.Version == 0 {
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO ledger_events (`+sqliteEventColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Name, e.Date, e.TicketPrice, e.MaxCapacity, e.TicketsSold, string(e.Status), e.Owner,
			next, toMillis(e.CreatedAt), toMillis(e.UpdatedAt),
		)
		if err != nil {
			if isSQLiteUniqueViolation(err) {
				return fmt.Errorf("put event %s: %w", e.ID, domain.ErrConflict)
			}
			return fmt.Errorf("insert event %s: %w", e.ID, err)
		}
		e.Version = next
		return nil
	}

	res, err := t.tx.ExecContext(ctx, `
UPDATE ledger_events
SET name = ?, event_date = ?, ticket_price = ?, max_capacity = ?, tickets_sold = ?, status = ?, owner = ?, version = ?, updated_at = ?
WHERE id = ? AND version = ?
`, e.Name, e.Date, e.TicketPrice, e.MaxCapacity, e.TicketsSold, string(e.Status), e.Owner, next, toMillis(e.UpdatedAt), e.ID, e.Version)
	if err != nil {
		return fmt.Errorf("update event %s: %w", e.ID, err)
	}
	if err := t.checkUpdated(ctx, res, "ledger_events", e.ID); err != nil {
		return fmt.Errorf("put event %s: %w", e.ID, err)
	}
	e.Version = next
	return nil
}

func (t *sqliteTx) PutTicket(ctx context.Context, tk *domain.Ticket) error {
	if !t.writable {
		return ErrReadOnly
	}

	next := tk.Version + 1
	if tk.Version == 0 {
		_, err := t.tx.ExecContext(ctx,
			`INSERT INTO ledger_tickets (`+sqliteTicketColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			tk.ID, tk.EventID, tk.Index, tk.Holder, string(tk.Status), tk.PurchasePrice, tk.EscrowTxID, tk.RefundedTo,
			next, toMillis(tk.CreatedAt), toMillis(tk.UpdatedAt),
		)
		if err != nil {
			if isSQLiteUniqueViolation(err) {
				return fmt.Errorf("put ticket %s: %w", tk.ID, domain.ErrConflict)
			}
			return fmt.Errorf("insert ticket %s: %w", tk.ID, err)
		}
		tk.Version = next
		return nil
	}

	res, err := t.tx.ExecContext(ctx, `
UPDATE ledger_tickets
SET holder = ?, status = ?, purchase_price = ?, escrow_tx_id = ?, refunded_to = ?, version = ?, updated_at = ?
WHERE id = ? AND version = ?
`, tk.Holder, string(tk.Status), tk.PurchasePrice, tk.EscrowTxID, tk.RefundedTo, next, toMillis(tk.UpdatedAt), tk.ID, tk.Version)
	if err != nil {
		return fmt.Errorf("update ticket %s: %w", tk.ID, err)
	}
	if err := t.checkUpdated(ctx, res, "ledger_tickets", tk.ID); err != nil {
		return fmt.Errorf("put ticket %s: %w", tk.ID, err)
	}
	tk.Version = next
	return nil
}

func (t *sqliteTx) PutTickets(ctx context.Context, tickets []*domain.Ticket) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.sqlite.ledger.put_tickets")
	defer span.End()
	span.SetAttributes(attribute.Int("ticket_count", len(tickets)))

	for _, tk := range tickets {
		if err := t.PutTicket(ctx, tk); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}
	}
	return nil
}

// checkUpdated turns a zero-row versioned update into NotFound or Conflict
func (t *sqliteTx) checkUpdated(ctx context.Context, res sql.Result, table, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var found int
	err = t.tx.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}
	return domain.ErrConflict
}

func (t *sqliteTx) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	rows, err := t.tx.QueryContext(ctx, `SELECT `+sqliteEventColumns+` FROM ledger_events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []*domain.Event{}
	for rows.Next() {
		e, err := scanSQLiteEvent(rows)
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

func (t *sqliteTx) ListTicketsByEvent(ctx context.Context, eventID string) ([]*domain.Ticket, error) {
	return t.queryTickets(ctx, `SELECT `+sqliteTicketColumns+` FROM ledger_tickets WHERE event_id = ? ORDER BY idx`, eventID)
}

func (t *sqliteTx) ListTicketsByHolder(ctx context.Context, holder string) ([]*domain.Ticket, error) {
	if strings.TrimSpace(holder) == "" {
		return []*domain.Ticket{}, nil
	}
	return t.queryTickets(ctx, `SELECT `+sqliteTicketColumns+` FROM ledger_tickets WHERE holder = ? ORDER BY event_id, idx`, holder)
}

func (t *sqliteTx) queryTickets(ctx context.Context, query string, arg string) ([]*domain.Ticket, error) {
	rows, err := t.tx.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := []*domain.Ticket{}
	for rows.Next() {
		tk, err := scanSQLiteTicket(rows)
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

func scanSQLiteEvent(row rowScanner) (*domain.Event, error) {
	var (
		e                domain.Event
		status           string
		created, updated int64
	)
	if err := row.Scan(&e.ID, &e.Name, &e.Date, &e.TicketPrice, &e.MaxCapacity, &e.TicketsSold,
		&status, &e.Owner, &e.Version, &created, &updated); err != nil {
		return nil, err
	}
	e.Status = domain.EventStatus(status)
	e.CreatedAt = fromMillis(created)
	e.UpdatedAt = fromMillis(updated)
	return &e, nil
}

func scanSQLiteTicket(row rowScanner) (*domain.Ticket, error) {
	var (
		tk               domain.Ticket
		status           string
		created, updated int64
	)
	if err := row.Scan(&tk.ID, &tk.EventID, &tk.Index, &tk.Holder, &status, &tk.PurchasePrice,
		&tk.EscrowTxID, &tk.RefundedTo, &tk.Version, &created, &updated); err != nil {
		return nil, err
	}
	tk.Status = domain.TicketStatus(status)
	tk.CreatedAt = fromMillis(created)
	tk.UpdatedAt = fromMillis(updated)
	return &tk, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
