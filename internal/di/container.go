package di

import (
	"github.com/fhayvy/CodeEntry/internal/escrow"
	"github.com/fhayvy/CodeEntry/internal/handler"
	"github.com/fhayvy/CodeEntry/internal/repository"
	"github.com/fhayvy/CodeEntry/internal/service"
	"github.com/fhayvy/CodeEntry/pkg/logger"
	"github.com/fhayvy/CodeEntry/pkg/redis"
)

// Container holds all dependencies for the ticket ledger service
type Container struct {
	// Infrastructure
	Redis *redis.Client

	// Repositories
	LedgerRepo repository.LedgerRepository

	// Adapters
	Escrow         escrow.Escrow
	EventPublisher service.LedgerEventPublisher

	// Services
	TicketService service.TicketService

	// Handlers
	HealthHandler *handler.HealthHandler
	EventHandler  *handler.EventHandler
	TicketHandler *handler.TicketHandler
	OwnerHandler  *handler.OwnerHandler
	LedgerHandler *handler.LedgerHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Redis          *redis.Client
	LedgerRepo     repository.LedgerRepository
	Escrow         escrow.Escrow
	EventPublisher service.LedgerEventPublisher
	Logger         *logger.Logger
	ServiceConfig  *service.TicketServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		Redis:          cfg.Redis,
		LedgerRepo:     cfg.LedgerRepo,
		Escrow:         cfg.Escrow,
		EventPublisher: cfg.EventPublisher,
	}

	if c.Escrow == nil {
		c.Escrow = escrow.NewMockEscrow(nil)
	}
	if c.EventPublisher == nil {
		c.EventPublisher = service.NewNoOpEventPublisher()
	}

	// Initialize services
	c.TicketService = service.NewTicketService(
		c.LedgerRepo,
		c.Escrow,
		c.EventPublisher,
		cfg.Logger,
		cfg.ServiceConfig,
	)

	// Initialize handlers
	var redisPinger handler.Pinger
	if c.Redis != nil {
		redisPinger = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(
		handler.Dependency{Name: "ledger", Pinger: c.LedgerRepo},
		handler.Dependency{Name: "redis", Pinger: redisPinger, Optional: true},
	)
	c.EventHandler = handler.NewEventHandler(c.TicketService)
	c.TicketHandler = handler.NewTicketHandler(c.TicketService)
	c.OwnerHandler = handler.NewOwnerHandler(c.TicketService)
	c.LedgerHandler = handler.NewLedgerHandler(c.TicketService)

	return c
}

// Close releases the publisher and the ledger store
func (c *Container) Close() error {
	if c.EventPublisher != nil {
		_ = c.EventPublisher.Close()
	}
	if c.LedgerRepo != nil {
		return c.LedgerRepo.Close()
	}
	return nil
}
