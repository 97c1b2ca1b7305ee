package status

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/statusgen/statusgen/internal/config"
)

const meterName = "github.com/statusgen/statusgen/internal/status"

// Metrics holds the OpenTelemetry instruments for status runs.
// A nil *Metrics records nothing.
type Metrics struct {
	branchDuration metric.Float64Histogram
	branchTotal    metric.Int64Counter
	backupAge      metric.Float64Gauge
}

// NewMetrics creates a new Metrics instance with initialized instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	branchDuration, err := meter.Float64Histogram(
		"statusgen.branch.duration",
		metric.WithDescription("Duration of status branch checks in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	branchTotal, err := meter.Int64Counter(
		"statusgen.branch.total",
		metric.WithDescription("Total number of status branch checks"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, err
	}

	backupAge, err := meter.Float64Gauge(
		"statusgen.backup.age",
		metric.WithDescription("Age of the latest backup in hours"),
		metric.WithUnit("h"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		branchDuration: branchDuration,
		branchTotal:    branchTotal,
		backupAge:      backupAge,
	}, nil
}

// RecordBranch records the duration and outcome of one branch.
func (m *Metrics) RecordBranch(ctx context.Context, branch string, duration time.Duration, err error) {
	if m == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("status.branch", branch),
		attribute.String("status.outcome", outcome(err)),
	}

	// Metrics outlive a cancelled run context.
	ctx = context.WithoutCancel(ctx)
	m.branchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.branchTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBackupAge records the age of the latest backup.
func (m *Metrics) RecordBackupAge(ctx context.Context, hours float64) {
	if m == nil {
		return
	}
	m.backupAge.Record(context.WithoutCancel(ctx), hours)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBranchNotConfigured), isConfigError(err):
		return "skipped"
	default:
		return "error"
	}
}

func isConfigError(err error) bool {
	var ce *config.ConfigError
	return errors.As(err, &ce)
}
