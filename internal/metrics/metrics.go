package metrics

import (
	"context"
	"sync"

	"github.com/fhayvy/CodeEntry/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Operation counters
	OperationsTotal *telemetry.Counter
	RejectionsTotal *telemetry.Counter
	ErrorsTotal     *telemetry.Counter

	// Ticket counters
	TicketsMinted   *telemetry.Counter
	TicketsSold     *telemetry.Counter
	TicketsMoved    *telemetry.Counter
	TicketsRefunded *telemetry.Counter

	// Escrow counters
	EscrowCalls        *telemetry.Counter
	EscrowFailures     *telemetry.Counter
	CompensationsTotal *telemetry.Counter

	// Publisher counters
	PublishFailures *telemetry.Counter

	// Histograms
	OperationDuration *telemetry.Histogram
	EscrowDuration    *telemetry.Histogram
	EscrowAmount      *telemetry.Histogram

	// Gauges
	ActiveEvents *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all ledger metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	OperationsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ledger_operations_total",
		Description: "Total number of committed ledger operations",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	RejectionsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ledger_rejections_total",
		Description: "Total number of rejected ledger operations by kind",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ErrorsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ledger_errors_total",
		Description: "Total number of internal errors by operation",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	TicketsMinted, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ledger_tickets_minted_total",
		Description: "Total number of tickets minted",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	TicketsSold, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ledger_tickets_sold_total",
		Description: "Total number of tickets sold",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	TicketsMoved, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ledger_tickets_transferred_total",
		Description: "Total number of ticket transfers",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	TicketsRefunded, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ledger_tickets_refunded_total",
		Description: "Total number of tickets refunded",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	EscrowCalls, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ledger_escrow_calls_total",
		Description: "Total number of escrow calls",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	EscrowFailures, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ledger_escrow_failures_total",
		Description: "Total number of failed escrow calls",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	CompensationsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ledger_escrow_compensations_total",
		Description: "Total number of compensating escrow releases after a failed commit",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	PublishFailures, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "ledger_publish_failures_total",
		Description: "Total number of ledger events that could not be published",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	OperationDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "ledger_operation_duration_seconds",
		Description: "Duration of ledger operations",
		Unit:        "s",
	}, []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}) // 1ms to 5s
	if err != nil {
		return err
	}

	EscrowDuration, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "ledger_escrow_duration_seconds",
		Description: "Duration of escrow calls",
		Unit:        "s",
	}, []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}) // 10ms to 10s
	if err != nil {
		return err
	}

	EscrowAmount, err = telemetry.NewHistogramWithBuckets(telemetry.MetricOpts{
		Name:        "ledger_escrow_amount",
		Description: "Escrowed amounts distribution",
		Unit:        "uSTX",
	}, []float64{100, 1000, 10000, 100000, 1000000, 10000000, 100000000})
	if err != nil {
		return err
	}

	ActiveEvents, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "ledger_active_events",
		Description: "Current number of active events",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordOperation records a committed operation and its duration
func RecordOperation(ctx context.Context, operation string, durationSeconds float64) {
	if OperationsTotal != nil {
		OperationsTotal.Inc(ctx,
			attribute.String("operation", operation),
		)
	}
	if OperationDuration != nil {
		OperationDuration.Record(ctx, durationSeconds,
			attribute.String("operation", operation),
			attribute.String("result", "ok"),
		)
	}
}

// RecordRejection records a typed rejection
func RecordRejection(ctx context.Context, operation, kind string, durationSeconds float64) {
	if RejectionsTotal != nil {
		RejectionsTotal.Inc(ctx,
			attribute.String("operation", operation),
			attribute.String("kind", kind),
		)
	}
	if OperationDuration != nil {
		OperationDuration.Record(ctx, durationSeconds,
			attribute.String("operation", operation),
			attribute.String("result", "rejected"),
		)
	}
}

// RecordError records an internal error by operation
func RecordError(ctx context.Context, operation string) {
	if ErrorsTotal != nil {
		ErrorsTotal.Inc(ctx,
			attribute.String("operation", operation),
		)
	}
}

// RecordMint records a minted event and its inventory
func RecordMint(ctx context.Context, capacity int) {
	if TicketsMinted != nil {
		TicketsMinted.Add(ctx, int64(capacity))
	}
	if ActiveEvents != nil {
		ActiveEvents.Inc(ctx)
	}
}

// Ticket counters carry no per-event attributes; event ids are unbounded
// and belong in logs and spans.

// RecordSale records a sold ticket
func RecordSale(ctx context.Context) {
	if TicketsSold != nil {
		TicketsSold.Inc(ctx)
	}
}

// RecordTransfer records a ticket transfer
func RecordTransfer(ctx context.Context) {
	if TicketsMoved != nil {
		TicketsMoved.Inc(ctx)
	}
}

// RecordCancel records a canceled event
func RecordCancel(ctx context.Context) {
	if ActiveEvents != nil {
		ActiveEvents.Dec(ctx)
	}
}

// RecordRefund records a refunded ticket
func RecordRefund(ctx context.Context) {
	if TicketsRefunded != nil {
		TicketsRefunded.Inc(ctx)
	}
}

// RecordEscrowCall records one escrow call
func RecordEscrowCall(ctx context.Context, provider, action string, amount int64, durationSeconds float64, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("action", action),
	}
	if EscrowCalls != nil {
		EscrowCalls.Inc(ctx, attrs...)
	}
	if EscrowDuration != nil {
		EscrowDuration.Record(ctx, durationSeconds, attrs...)
	}
	if err != nil {
		if EscrowFailures != nil {
			EscrowFailures.Inc(ctx, attrs...)
		}
		return
	}
	if EscrowAmount != nil {
		EscrowAmount.Record(ctx, float64(amount), attrs...)
	}
}

// RecordCompensation records a compensating escrow release
func RecordCompensation(ctx context.Context, operation string, succeeded bool) {
	if CompensationsTotal != nil {
		CompensationsTotal.Inc(ctx,
			attribute.String("operation", operation),
			attribute.Bool("succeeded", succeeded),
		)
	}
}

// RecordPublishFailure records a ledger event that was not published
func RecordPublishFailure(ctx context.Context, eventType string) {
	if PublishFailures != nil {
		PublishFailures.Inc(ctx,
			attribute.String("event_type", eventType),
		)
	}
}
