package escrow

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockEscrowConfig holds configuration for the mock escrow
type MockEscrowConfig struct {
	// SuccessRate is the probability of a successful call (0.0 to 1.0)
	SuccessRate float64

	// DelayMs is the simulated settlement delay in milliseconds
	DelayMs int

	// FailureReasons is a list of possible decline reasons
	FailureReasons []string
}

// DefaultMockEscrowConfig returns default configuration
func DefaultMockEscrowConfig() *MockEscrowConfig {
	return &MockEscrowConfig{
		SuccessRate: 1.0,
		FailureReasons: []string{
			"insufficient_funds",
			"account_frozen",
			"processing_error",
		},
	}
}

type mockCommit struct {
	amount   int64
	from     string
	released int64
}

// MockEscrow implements Escrow in memory for development and tests
type MockEscrow struct {
	config  *MockEscrowConfig
	mu      sync.RWMutex
	commits map[string]*mockCommit
	keys    map[string]*Receipt
}

// NewMockEscrow creates a new mock escrow
func NewMockEscrow(config *MockEscrowConfig) *MockEscrow {
	if config == nil {
		config = DefaultMockEscrowConfig()
	}
	config.SuccessRate = clampRate(config.SuccessRate)

	return &MockEscrow{
		config:  config,
		commits: make(map[string]*mockCommit),
		keys:    make(map[string]*Receipt),
	}
}

// Commit holds funds for a buyer
func (e *MockEscrow) Commit(ctx context.Context, req *CommitRequest) (*Receipt, error) {
	if req == nil {
		return nil, fmt.Errorf("commit request is required")
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := e.settle(ctx); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if r, ok := e.keys[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return r, nil
	}
	if reason := e.decline(); reason != "" {
		return nil, fmt.Errorf("%w: %s", ErrDeclined, reason)
	}

	receipt := &Receipt{
		TxID:   fmt.Sprintf("esc_commit_%s", uuid.New().String()),
		Amount: req.Amount,
		Status: "committed",
	}
	e.commits[receipt.TxID] = &mockCommit{amount: req.Amount, from: req.From}
	if req.IdempotencyKey != "" {
		e.keys[req.IdempotencyKey] = receipt
	}
	return receipt, nil
}

// Release returns funds. Releases against a known commit may not exceed it.
func (e *MockEscrow) Release(ctx context.Context, req *ReleaseRequest) (*Receipt, error) {
	if req == nil {
		return nil, fmt.Errorf("release request is required")
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := e.settle(ctx); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if r, ok := e.keys[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		return r, nil
	}

	var commit *mockCommit
	if req.CommitTxID != "" {
		c, ok := e.commits[req.CommitTxID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCommit, req.CommitTxID)
		}
		if c.released >= c.amount {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyReleased, req.CommitTxID)
		}
		if c.released+req.Amount > c.amount {
			return nil, ErrReleaseExceedsSum
		}
		commit = c
	}
	if reason := e.decline(); reason != "" {
		return nil, fmt.Errorf("%w: %s", ErrDeclined, reason)
	}

	if commit != nil {
		commit.released += req.Amount
	}
	receipt := &Receipt{
		TxID:   fmt.Sprintf("esc_release_%s", uuid.New().String()),
		Amount: req.Amount,
		Status: "released",
	}
	if req.IdempotencyKey != "" {
		e.keys[req.IdempotencyKey] = receipt
	}
	return receipt, nil
}

// Name returns the escrow name
func (e *MockEscrow) Name() string {
	return "mock"
}

// SetSuccessRate updates the success rate (for testing)
func (e *MockEscrow) SetSuccessRate(rate float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.config.SuccessRate = clampRate(rate)
}

// GetSuccessRate returns the current success rate
func (e *MockEscrow) GetSuccessRate() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config.SuccessRate
}

// Held returns the amount still held under a commit
func (e *MockEscrow) Held(commitTxID string) int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if c, ok := e.commits[commitTxID]; ok {
		return c.amount - c.released
	}
	return 0
}

func (e *MockEscrow) settle(ctx context.Context) error {
	if e.config.DelayMs <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(e.config.DelayMs) * time.Millisecond):
		return nil
	}
}

// decline returns a failure reason, or "" when the call succeeds. Caller holds mu.
func (e *MockEscrow) decline() string {
	if rand.Float64() < e.config.SuccessRate {
		return ""
	}
	if len(e.config.FailureReasons) == 0 {
		return "escrow_failed"
	}
	return e.config.FailureReasons[rand.Intn(len(e.config.FailureReasons))]
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
