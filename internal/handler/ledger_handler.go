package handler

import (
	"net/http"

	"github.com/fhayvy/CodeEntry/internal/dto"
	"github.com/fhayvy/CodeEntry/internal/service"
	"github.com/fhayvy/CodeEntry/pkg/response"
	"github.com/gin-gonic/gin"
)

// LedgerHandler exposes ledger-wide views
type LedgerHandler struct {
	ticketService service.TicketService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ticketService service.TicketService) *LedgerHandler {
	return &LedgerHandler{
		ticketService: ticketService,
	}
}

// Digest handles GET /ledger/digest
func (h *LedgerHandler) Digest(c *gin.Context) {
	digest, err := h.ticketService.LedgerDigest(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to compute ledger digest")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.DigestResponse{Digest: digest}))
}
