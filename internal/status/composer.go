// Package status composes the uptime and backup branches into the status
// document and persists it.
package status

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/statusgen/statusgen/internal/backup"
	"github.com/statusgen/statusgen/internal/provider"
	"github.com/statusgen/statusgen/internal/uptime"
)

const tracerName = "github.com/statusgen/statusgen/internal/status"

// Branch names used in logs, spans and metrics.
const (
	BranchUptime = "uptime"
	BranchBackup = "backup"
)

// ErrBranchNotConfigured is returned for a branch that has no checker.
var ErrBranchNotConfigured = errors.New("branch not configured")

// ErrNoResult is returned for a checker that reported neither a result nor an error.
var ErrNoResult = errors.New("branch returned no result")

// UptimeChecker produces the uptime branch result.
type UptimeChecker interface {
	Check(ctx context.Context) (*uptime.Result, error)
}

// BackupChecker produces the backup branch result.
type BackupChecker interface {
	Check(ctx context.Context, now time.Time) backup.Status
}

// ComposerConfig holds configuration for the composer.
type ComposerConfig struct {
	// Uptime is the uptime branch. If nil, the branch is skipped with
	// UptimeErr (or ErrBranchNotConfigured) as the reason.
	Uptime    UptimeChecker
	UptimeErr error

	// Backup is the backup branch. If nil, the branch is skipped with
	// BackupErr (or ErrBranchNotConfigured) as the reason.
	Backup    BackupChecker
	BackupErr error

	// Metrics records branch outcomes (optional).
	Metrics *Metrics

	// Now returns the current time (default: time.Now).
	Now func() time.Time

	// Logger for composer operations.
	Logger zerolog.Logger
}

// Composer runs both branches as independent failure domains.
type Composer struct {
	uptime    UptimeChecker
	uptimeErr error
	backup    BackupChecker
	backupErr error
	metrics   *Metrics
	now       func() time.Time
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewComposer creates a new status composer.
func NewComposer(cfg ComposerConfig) *Composer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Composer{
		uptime:    cfg.Uptime,
		uptimeErr: cfg.UptimeErr,
		backup:    cfg.Backup,
		backupErr: cfg.BackupErr,
		metrics:   cfg.Metrics,
		now:       now,
		tracer:    otel.Tracer(tracerName),
		logger:    cfg.Logger,
	}
}

// Compose runs the uptime branch, then the backup branch, and merges them.
// It always returns a well-formed document.
func (c *Composer) Compose(ctx context.Context) Document {
	ctx, span := c.tracer.Start(ctx, "status.Compose")
	defer span.End()

	now := c.now().UTC()

	u := c.runUptime(ctx)
	b := c.runBackup(ctx, now)

	doc := Merge(now, u, b)

	span.SetAttributes(
		attribute.String("status.platform", string(doc.PlatformStatus)),
		attribute.String("status.backups", string(doc.Backups.LastBackupStatus)),
	)

	return doc
}

func (c *Composer) runUptime(ctx context.Context) UptimeOutcome {
	ctx, span := c.tracer.Start(ctx, "status.uptime")
	defer span.End()
	start := time.Now()

	var out UptimeOutcome
	if c.uptime == nil {
		out.Err = skipReason(c.uptimeErr)
	} else {
		out.Result, out.Err = c.uptime.Check(ctx)
		if out.Err == nil && out.Result == nil {
			out.Err = ErrNoResult
		}
	}

	c.finish(ctx, span, BranchUptime, start, out.Err)
	if out.Err == nil {
		c.logger.Info().
			Str("platform_status", string(out.Result.PlatformStatus)).
			Int("monitors", out.Result.Monitors).
			Msg("uptime branch completed")
	}
	return out
}

func (c *Composer) runBackup(ctx context.Context, now time.Time) BackupOutcome {
	ctx, span := c.tracer.Start(ctx, "status.backup")
	defer span.End()
	start := time.Now()

	var out BackupOutcome
	if c.backup == nil {
		out.Err = skipReason(c.backupErr)
	} else {
		s := c.backup.Check(ctx, now)
		out.Status = &s
	}

	c.finish(ctx, span, BranchBackup, start, out.Err)
	if out.Err == nil {
		if out.Status.AgeHours != nil {
			c.metrics.RecordBackupAge(ctx, *out.Status.AgeHours)
		}
		c.logger.Info().
			Str("backup_status", string(out.Status.State)).
			Msg("backup branch completed")
	}
	return out
}

func (c *Composer) finish(ctx context.Context, span trace.Span, branch string, start time.Time, err error) {
	c.metrics.RecordBranch(ctx, branch, time.Since(start), err)

	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if errors.Is(err, ErrBranchNotConfigured) || isConfigError(err) {
		c.logger.Warn().Err(err).Str("branch", branch).Msg("branch skipped, keeping defaults")
		return
	}
	c.logger.Error().
		Err(err).
		Str("branch", branch).
		Str("error_kind", provider.Kind(err)).
		Msg("branch failed, keeping defaults")
}

func skipReason(err error) error {
	if err != nil {
		return err
	}
	return ErrBranchNotConfigured
}
