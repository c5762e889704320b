package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketID_RoundTrip(t *testing.T) {
	id := TicketID("evt-1", 7)
	assert.Equal(t, "evt-1#7", id)

	eventID, index, err := ParseTicketID(id)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", eventID)
	assert.Equal(t, 7, index)
}

func TestParseTicketID_Malformed(t *testing.T) {
	for _, id := range []string{"", "evt-1", "#0", "evt-1#", "evt-1#x", "evt-1#-1", "evt-1#01"} {
		t.Run(id, func(t *testing.T) {
			_, _, err := ParseTicketID(id)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestTicket_OwnedBy(t *testing.T) {
	now := time.Now()
	ticket := NewMintedTicket("evt-1", 0, now)
	assert.False(t, ticket.OwnedBy("B"))
	assert.False(t, ticket.OwnedBy(""))

	ticket.Status = TicketStatusSold
	ticket.Holder = "B"
	assert.True(t, ticket.OwnedBy("B"))
	assert.False(t, ticket.OwnedBy("C"))

	ticket.Status = TicketStatusRefunded
	ticket.Holder = ""
	ticket.RefundedTo = "B"
	assert.True(t, ticket.OwnedBy("B"))
	assert.False(t, ticket.OwnedBy("C"))
}

func TestClone_IsIndependent(t *testing.T) {
	e := &Event{ID: "evt-1", TicketsSold: 1}
	c := e.Clone()
	c.TicketsSold = 2
	assert.Equal(t, 1, e.TicketsSold)

	tk := &Ticket{ID: "evt-1#0", Holder: "B"}
	tc := tk.Clone()
	tc.Holder = "C"
	assert.Equal(t, "B", tk.Holder)

	assert.Nil(t, (*Event)(nil).Clone())
	assert.Nil(t, (*Ticket)(nil).Clone())
}

func TestEvent_SoldOut(t *testing.T) {
	e := &Event{MaxCapacity: 2, TicketsSold: 1}
	assert.False(t, e.SoldOut())
	e.TicketsSold = 2
	assert.True(t, e.SoldOut())
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindNone},
		{ErrInvalidInput, KindInvalidInput},
		{fmt.Errorf("name: %w", ErrInvalidInput), KindInvalidInput},
		{fmt.Errorf("put event: %w", ErrConflict), KindConflict},
		{ErrNotFound, KindNotFound},
		{ErrNotOwner, KindNotOwner},
		{ErrAlreadySold, KindAlreadySold},
		{ErrAlreadyCanceled, KindAlreadyCanceled},
		{ErrAlreadyRefunded, KindAlreadyRefunded},
		{ErrNotTransferable, KindNotTransferable},
		{ErrSoldOut, KindSoldOut},
		{ErrEventCanceled, KindEventCanceled},
		{ErrEventNotCanceled, KindEventNotCanceled},
		{ErrInvalidRecipient, KindInvalidRecipient},
		{fmt.Errorf("%w: card declined", ErrPaymentFailed), KindPaymentFailed},
		{errors.New("disk full"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestClassifiers(t *testing.T) {
	assert.True(t, IsNotFoundError(fmt.Errorf("x: %w", ErrNotFound)))
	assert.True(t, IsValidationError(ErrInvalidRecipient))
	assert.True(t, IsConflictError(ErrConflict))
	assert.True(t, IsConflictError(ErrSoldOut))
	assert.True(t, IsStateError(ErrEventNotCanceled))
	assert.False(t, IsStateError(ErrNotOwner))
	assert.True(t, IsRejection(ErrPaymentFailed))
	assert.False(t, IsRejection(errors.New("boom")))
	assert.False(t, IsRejection(nil))
}

func TestLedgerEvent_Key(t *testing.T) {
	e := &LedgerEvent{EventID: "evt-1", TicketID: "evt-1#0"}
	assert.Equal(t, "evt-1", e.Key())
}
