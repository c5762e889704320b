package escrow

import (
	"context"
	"errors"
)

// Escrow errors
var (
	ErrDeclined          = errors.New("escrow declined")
	ErrInvalidAmount     = errors.New("escrow amount must be positive")
	ErrUnknownCommit     = errors.New("escrow commit not found")
	ErrAlreadyReleased   = errors.New("escrow commit already released")
	ErrReleaseExceedsSum = errors.New("release exceeds committed amount")
)

// Escrow holds buyer funds at purchase and releases them on refund.
// Amounts are in the smallest currency unit.
type Escrow interface {
	// Commit holds Amount on behalf of From
	Commit(ctx context.Context, req *CommitRequest) (*Receipt, error)
	// Release returns Amount to To
	Release(ctx context.Context, req *ReleaseRequest) (*Receipt, error)
	// Name returns the escrow provider name
	Name() string
}

// CommitRequest represents a request to hold funds
type CommitRequest struct {
	Amount         int64
	From           string
	Reference      string // ticket id
	IdempotencyKey string
}

// ReleaseRequest represents a request to return held funds
type ReleaseRequest struct {
	Amount         int64
	To             string
	Reference      string
	CommitTxID     string // receipt id of the original commit, may be empty
	IdempotencyKey string
}

// Receipt is the committed outcome of an escrow call
type Receipt struct {
	TxID   string
	Amount int64
	Status string
}
