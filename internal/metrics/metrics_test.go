package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	require.NoError(t, Init())
	require.NoError(t, Init())

	assert.NotNil(t, OperationsTotal)
	assert.NotNil(t, RejectionsTotal)
	assert.NotNil(t, OperationDuration)
	assert.NotNil(t, ActiveEvents)
}

func TestRecordHelpers(t *testing.T) {
	require.NoError(t, Init())
	ctx := context.Background()

	assert.NotPanics(t, func() {
		RecordOperation(ctx, "mint", 0.01)
		RecordRejection(ctx, "purchase", "SoldOut", 0.002)
		RecordError(ctx, "refund")
		RecordMint(ctx, 100)
		RecordSale(ctx)
		RecordTransfer(ctx)
		RecordCancel(ctx)
		RecordRefund(ctx)
		RecordEscrowCall(ctx, "mock", "commit", 500, 0.02, nil)
		RecordEscrowCall(ctx, "mock", "release", 500, 0.02, errors.New("declined"))
		RecordCompensation(ctx, "purchase", true)
		RecordPublishFailure(ctx, "ticket.purchased")
	})
}
