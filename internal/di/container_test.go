package di

import (
	"context"
	"testing"

	"github.com/fhayvy/CodeEntry/internal/repository"
	"github.com/fhayvy/CodeEntry/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContainer_Defaults(t *testing.T) {
	repo := repository.NewMemoryLedgerRepository()
	c := NewContainer(&ContainerConfig{
		LedgerRepo: repo,
		Logger:     logger.Nop(),
	})

	require.NotNil(t, c.TicketService)
	assert.Equal(t, "mock", c.Escrow.Name())
	assert.NotNil(t, c.EventPublisher)
	assert.NotNil(t, c.HealthHandler)
	assert.NotNil(t, c.EventHandler)
	assert.NotNil(t, c.TicketHandler)
	assert.NotNil(t, c.OwnerHandler)
	assert.NotNil(t, c.LedgerHandler)

	events, err := c.TicketService.ListEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)

	require.NoError(t, c.Close())
	assert.Error(t, repo.Ping(context.Background()))
}
