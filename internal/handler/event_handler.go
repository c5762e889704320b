package handler

import (
	"net/http"

	"github.com/fhayvy/CodeEntry/internal/dto"
	"github.com/fhayvy/CodeEntry/internal/service"
	"github.com/fhayvy/CodeEntry/pkg/response"
	"github.com/gin-gonic/gin"
)

// EventHandler handles event-related HTTP requests
type EventHandler struct {
	ticketService service.TicketService
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(ticketService service.TicketService) *EventHandler {
	return &EventHandler{
		ticketService: ticketService,
	}
}

// Mint handles POST /events - registers an event and mints its tickets
func (h *EventHandler) Mint(c *gin.Context) {
	var req dto.MintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.BadRequest("Invalid request body"))
		return
	}

	caller, ok := callerAddress(c)
	if !ok {
		return
	}
	req.Caller = caller

	if valid, msg := req.Validate(); !valid {
		c.JSON(http.StatusBadRequest, response.Error(response.ErrCodeInvalidInput, msg))
		return
	}

	id, err := h.ticketService.MintTicket(c.Request.Context(), &service.MintParams{
		EventID:     req.EventID,
		Name:        req.Name,
		Date:        req.Date,
		Price:       req.Price,
		MaxCapacity: req.MaxCapacity,
		Caller:      req.Caller,
	})
	if err != nil {
		respondError(c, err, "Failed to mint tickets")
		return
	}

	c.JSON(http.StatusCreated, response.Success(dto.OperationResponse{ID: id}))
}

// List handles GET /events
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.ticketService.ListEvents(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list events")
		return
	}

	c.JSON(http.StatusOK, response.List(dto.ToEventResponses(events), len(events)))
}

// Get handles GET /events/:id
func (h *EventHandler) Get(c *gin.Context) {
	id := c.Param("id")
	event, err := h.ticketService.GetEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get event")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.ToEventResponse(event)))
}

// ListTickets handles GET /events/:id/tickets
func (h *EventHandler) ListTickets(c *gin.Context) {
	id := c.Param("id")
	tickets, err := h.ticketService.ListTicketsByEvent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to list tickets")
		return
	}

	c.JSON(http.StatusOK, response.List(dto.ToTicketResponses(tickets), len(tickets)))
}

// Cancel handles POST /events/:id/cancel - only the event owner may cancel
func (h *EventHandler) Cancel(c *gin.Context) {
	id := c.Param("id")
	caller, ok := callerAddress(c)
	if !ok {
		return
	}

	eventID, err := h.ticketService.CancelEvent(c.Request.Context(), id, caller)
	if err != nil {
		respondError(c, err, "Failed to cancel event")
		return
	}

	c.JSON(http.StatusOK, response.Success(dto.OperationResponse{ID: eventID}))
}
