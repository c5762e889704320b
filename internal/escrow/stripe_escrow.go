package escrow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"
)

// StripeEscrowConfig holds configuration for the Stripe escrow
type StripeEscrowConfig struct {
	SecretKey     string
	Currency      string
	PaymentMethod string // confirms the intent server-side when set
}

// StripeEscrow implements Escrow with Stripe PaymentIntents and Refunds
type StripeEscrow struct {
	config *StripeEscrowConfig

	newPaymentIntent func(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	newRefund        func(params *stripe.RefundParams) (*stripe.Refund, error)
}

// NewStripeEscrow creates a new Stripe escrow
func NewStripeEscrow(config *StripeEscrowConfig) (*StripeEscrow, error) {
	if config == nil {
		return nil, fmt.Errorf("stripe config is required")
	}
	if config.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	if config.Currency == "" {
		config.Currency = "usd"
	}

	// Set Stripe API key globally
	stripe.Key = config.SecretKey

	return &StripeEscrow{
		config:           config,
		newPaymentIntent: paymentintent.New,
		newRefund:        refund.New,
	}, nil
}

// Commit creates a PaymentIntent for the ticket price
func (e *StripeEscrow) Commit(ctx context.Context, req *CommitRequest) (*Receipt, error) {
	if req == nil {
		return nil, fmt.Errorf("commit request is required")
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.Amount),
		Currency: stripe.String(strings.ToLower(e.config.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
		Metadata: map[string]string{
			"buyer":     req.From,
			"reference": req.Reference,
		},
	}
	if e.config.PaymentMethod != "" {
		params.PaymentMethod = stripe.String(e.config.PaymentMethod)
		params.Confirm = stripe.Bool(true)
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	pi, err := e.newPaymentIntent(params)
	if err != nil {
		return nil, translateStripeError(err)
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded,
		stripe.PaymentIntentStatusProcessing,
		stripe.PaymentIntentStatusRequiresCapture:
		return &Receipt{TxID: pi.ID, Amount: pi.Amount, Status: string(pi.Status)}, nil
	default:
		return nil, fmt.Errorf("%w: payment intent %s is %s", ErrDeclined, pi.ID, pi.Status)
	}
}

// Release refunds the PaymentIntent the ticket was bought with
func (e *StripeEscrow) Release(ctx context.Context, req *ReleaseRequest) (*Receipt, error) {
	if req == nil {
		return nil, fmt.Errorf("release request is required")
	}
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.CommitTxID == "" {
		return nil, fmt.Errorf("%w: stripe release needs the commit payment intent", ErrUnknownCommit)
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.CommitTxID),
		Amount:        stripe.Int64(req.Amount),
	}
	params.Context = ctx
	params.AddMetadata("claimant", req.To)
	params.AddMetadata("reference", req.Reference)
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	r, err := e.newRefund(params)
	if err != nil {
		return nil, translateStripeError(err)
	}
	if r.Status == stripe.RefundStatusFailed || r.Status == stripe.RefundStatusCanceled {
		return nil, fmt.Errorf("%w: refund %s is %s", ErrDeclined, r.ID, r.Status)
	}

	return &Receipt{TxID: r.ID, Amount: r.Amount, Status: string(r.Status)}, nil
}

// Name returns the escrow name
func (e *StripeEscrow) Name() string {
	return "stripe"
}

// translateStripeError marks card declines as ErrDeclined
func translateStripeError(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) && stripeErr.Type == stripe.ErrorTypeCard {
		return fmt.Errorf("%w: %s", ErrDeclined, stripeErr.Msg)
	}
	return fmt.Errorf("stripe: %w", err)
}
