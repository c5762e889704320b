package handler

import (
	"net/http"

	"github.com/fhayvy/CodeEntry/internal/dto"
	"github.com/fhayvy/CodeEntry/internal/service"
	"github.com/fhayvy/CodeEntry/pkg/response"
	"github.com/gin-gonic/gin"
)

// OwnerHandler serves holder-centric queries
type OwnerHandler struct {
	ticketService service.TicketService
}

// NewOwnerHandler creates a new OwnerHandler
func NewOwnerHandler(ticketService service.TicketService) *OwnerHandler {
	return &OwnerHandler{
		ticketService: ticketService,
	}
}

// ListTickets handles GET /owners/:address/tickets
func (h *OwnerHandler) ListTickets(c *gin.Context) {
	address := c.Param("address")
	tickets, err := h.ticketService.ListTicketsByOwner(c.Request.Context(), address)
	if err != nil {
		respondError(c, err, "Failed to list tickets")
		return
	}

	c.JSON(http.StatusOK, response.List(dto.ToTicketResponses(tickets), len(tickets)))
}
