package dto

import (
	"testing"
	"time"

	"github.com/fhayvy/CodeEntry/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMintRequest_Validate(t *testing.T) {
	tests := []struct {
		name  string
		req   MintRequest
		valid bool
	}{
		{"valid", MintRequest{EventID: "evt-1", Name: "Summit", Date: "2024-12-15"}, true},
		{"missing event id", MintRequest{Name: "Summit", Date: "2024-12-15"}, false},
		{"blank name", MintRequest{EventID: "evt-1", Name: "  ", Date: "2024-12-15"}, false},
		{"missing date", MintRequest{EventID: "evt-1", Name: "Summit"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, msg := tt.req.Validate()
			assert.Equal(t, tt.valid, valid)
			if !tt.valid {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestToTicketResponse(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		ID:            "evt-1#3",
		EventID:       "evt-1",
		Index:         3,
		Holder:        "ST1PVT3S8T3CQCNKPHDXMXPB2AQK7ZM8Q83RJ5Q1T",
		Status:        domain.TicketStatusSold,
		PurchasePrice: 500,
		UpdatedAt:     now,
	}

	resp := ToTicketResponse(ticket)
	require.NotNil(t, resp)
	assert.Equal(t, "evt-1#3", resp.ID)
	assert.Equal(t, ticket.Holder, resp.Owner)
	assert.Equal(t, "sold", resp.Status)
	assert.Equal(t, int64(500), resp.PurchasePrice)

	assert.Nil(t, ToTicketResponse(nil))
	assert.Len(t, ToTicketResponses([]*domain.Ticket{ticket, ticket}), 2)
	assert.Empty(t, ToEventResponses(nil))
}
