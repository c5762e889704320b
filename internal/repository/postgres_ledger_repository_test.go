package repository

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/fhayvy/CodeEntry/pkg/database"
	"github.com/stretchr/testify/require"
)

func skipIfNoIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run.")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func setupTestDB(t *testing.T) *database.PostgresDB {
	ctx := context.Background()

	port, _ := strconv.Atoi(getEnv("POSTGRES_PORT", "5432"))
	cfg := database.DefaultPostgresConfig()
	cfg.Host = getEnv("POSTGRES_HOST", "localhost")
	cfg.Port = port
	cfg.User = getEnv("POSTGRES_USER", "postgres")
	cfg.Password = getEnv("POSTGRES_PASSWORD", "postgres")
	cfg.Database = getEnv("POSTGRES_DB", "ticket_ledger_test")
	cfg.MaxConns = 5
	cfg.MinConns = 1
	cfg.ConnectTimeout = 5 * time.Second

	db, err := database.NewPostgres(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}
	return db
}

func TestPostgresLedgerRepository_Contract(t *testing.T) {
	skipIfNoIntegration(t)

	db := setupTestDB(t)
	defer db.Close()

	runLedgerContract(t, func(t *testing.T) LedgerRepository {
		ctx := context.Background()
		repo := NewPostgresLedgerRepository(db)
		require.NoError(t, repo.EnsureSchema(ctx))
		require.NoError(t, db.ExecScript(ctx, "TRUNCATE ledger_tickets, ledger_events"))
		return repo
	})
}
