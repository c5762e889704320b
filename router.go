package main

import (
	"net/http"

	"github.com/fhayvy/CodeEntry/internal/di"
	"github.com/fhayvy/CodeEntry/internal/validator"
	"github.com/fhayvy/CodeEntry/pkg/config"
	"github.com/fhayvy/CodeEntry/pkg/logger"
	"github.com/fhayvy/CodeEntry/pkg/middleware"
	"github.com/fhayvy/CodeEntry/pkg/telemetry"
	"github.com/gin-gonic/gin"
)

// setupRouter registers middleware and routes on a new engine
func setupRouter(cfg *config.Config, container *di.Container, log *logger.Logger) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log, "/health", "/ready"))
	router.Use(telemetry.TracingMiddleware(cfg.App.Name, "/health", "/ready"))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	auth := middleware.JWTMiddleware(&middleware.JWTConfig{
		Secret:          cfg.JWT.Secret,
		Issuer:          cfg.JWT.Issuer,
		ValidateSubject: validator.Address,
	})

	// Write operations replay on a repeated X-Idempotency-Key when Redis is up
	writes := []gin.HandlerFunc{auth}
	if container.Redis != nil {
		idempotencyConfig := middleware.DefaultIdempotencyConfig(container.Redis.Raw())
		if cfg.Redis.IdempotencyTTL > 0 {
			idempotencyConfig.TTL = cfg.Redis.IdempotencyTTL
		}
		idempotencyConfig.Logger = log
		writes = append(writes, middleware.IdempotencyMiddleware(idempotencyConfig))
	}
	write := func(h gin.HandlerFunc) []gin.HandlerFunc {
		chain := append([]gin.HandlerFunc{}, writes...)
		return append(chain, h)
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"version": cfg.App.Version,
				"service": cfg.App.Name,
				"store":   cfg.Ledger.Store,
				"escrow":  container.Escrow.Name(),
			})
		})

		events := v1.Group("/events")
		{
			events.POST("", write(container.EventHandler.Mint)...)
			events.GET("", container.EventHandler.List)
			events.GET("/:id", container.EventHandler.Get)
			events.GET("/:id/tickets", container.EventHandler.ListTickets)
			events.POST("/:id/cancel", write(container.EventHandler.Cancel)...)
		}

		tickets := v1.Group("/tickets")
		{
			tickets.GET("/:id", container.TicketHandler.Get)
			tickets.POST("/:id/purchase", write(container.TicketHandler.Purchase)...)
			tickets.POST("/:id/transfer", write(container.TicketHandler.Transfer)...)
			tickets.POST("/:id/refund", write(container.TicketHandler.Refund)...)
		}

		v1.GET("/owners/:address/tickets", container.OwnerHandler.ListTickets)
		v1.GET("/ledger/digest", container.LedgerHandler.Digest)
	}

	return router
}
