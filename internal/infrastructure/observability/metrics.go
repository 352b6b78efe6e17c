package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics.
type Metrics struct {
	meter metric.Meter

	// Service operation metrics
	OperationsTotal   metric.Int64Counter
	OperationDuration metric.Float64Histogram

	// Transaction metrics
	TransactionsTotal    metric.Int64Counter
	TransactionRollbacks metric.Int64Counter
}

// NewMetrics creates and registers all application metrics.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}

	var err error

	m.OperationsTotal, err = meter.Int64Counter(
		"registry.operations.total",
		metric.WithDescription("Total number of registry service operations"),
		metric.WithUnit("{operations}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating registry_operations_total: %w", err)
	}

	m.OperationDuration, err = meter.Float64Histogram(
		"registry.operation.duration",
		metric.WithDescription("Registry service operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating registry_operation_duration: %w", err)
	}

	m.TransactionsTotal, err = meter.Int64Counter(
		"transactions.total",
		metric.WithDescription("Total number of units of work opened"),
		metric.WithUnit("{transactions}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transactions_total: %w", err)
	}

	m.TransactionRollbacks, err = meter.Int64Counter(
		"transactions.rollbacks.total",
		metric.WithDescription("Total number of units of work rolled back"),
		metric.WithUnit("{transactions}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transaction_rollbacks_total: %w", err)
	}

	return m, nil
}

// RecordOperation records service operation metrics. Safe to call on a nil
// receiver so services can run without telemetry wired.
func (m *Metrics) RecordOperation(ctx context.Context, operation, entity string, duration time.Duration, success bool) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("entity", entity),
		attribute.Bool("success", success),
	}

	m.OperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.OperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordTransaction records unit-of-work metrics.
func (m *Metrics) RecordTransaction(ctx context.Context, rolledBack bool) {
	if m == nil {
		return
	}

	m.TransactionsTotal.Add(ctx, 1)
	if rolledBack {
		m.TransactionRollbacks.Add(ctx, 1)
	}
}
