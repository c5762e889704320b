package handler

import (
	"net/http"

	"github.com/fhayvy/CodeEntry/internal/dto"
	"github.com/fhayvy/CodeEntry/internal/service"
	"github.com/fhayvy/CodeEntry/pkg/response"
	"github.com/gin-gonic/gin"
)

// TicketHandler handles ticket-related HTTP requests. Ticket ids contain
// '#', which clients send percent-encoded as %23.
type TicketHandler struct {
	ticketService service.TicketService
}

// NewTicketHandler creates a new TicketHandler
func NewTicketHandler(ticketService service.TicketService) *TicketHandler {
	return &TicketHandler{
		ticketService: ticketService,
	}
}

// Get handles GET /tickets/:id
func (h *TicketHandler) Get(c *gin.Context) {
	id := c.Param("id")
	ticket, err := h.ticketService.GetTicket(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.ToTicketResponse(ticket)))
}

// Purchase handles POST /tickets/:id/purchase
func (h *TicketHandler) Purchase(c *gin.Context) {
	id := c.Param("id")
	buyer, ok := callerAddress(c)
	if !ok {
		return
	}

	ticketID, err := h.ticketService.PurchaseTicket(c.Request.Context(), id, buyer)
	if err != nil {
		respondError(c, err, "Failed to purchase ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.OperationResponse{ID: ticketID}))
}

// Transfer handles POST /tickets/:id/transfer
func (h *TicketHandler) Transfer(c *gin.Context) {
	id := c.Param("id")
	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}

	from, ok := callerAddress(c)
	if !ok {
		return
	}

	ticketID, err := h.ticketService.TransferTicket(c.Request.Context(), id, from, req.NewOwner)
	if err != nil {
		respondError(c, err, "Failed to transfer ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.OperationResponse{ID: ticketID}))
}

// Refund handles POST /tickets/:id/refund
func (h *TicketHandler) Refund(c *gin.Context) {
	id := c.Param("id")
	claimant, ok := callerAddress(c)
	if !ok {
		return
	}

	ticketID, err := h.ticketService.RefundTicket(c.Request.Context(), id, claimant)
	if err != nil {
		respondError(c, err, "Failed to refund ticket")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.OperationResponse{ID: ticketID}))
}
