// Package worker runs one status generation: compose, persist, publish.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/statusgen/statusgen/internal/status"
)

// ErrNoOutput is returned when the job has no output path.
var ErrNoOutput = errors.New("no output file configured")

// Composer produces the status document.
type Composer interface {
	Compose(ctx context.Context) status.Document
}

// StatusJob handles a single status generation run.
type StatusJob struct {
	composer   Composer
	outputFile string
	publisher  Publisher
	logger     zerolog.Logger
}

// StatusJobConfig holds configuration for creating a StatusJob.
type StatusJobConfig struct {
	Composer   Composer
	OutputFile string

	// Publisher is optional; nil disables publication.
	Publisher Publisher

	Logger zerolog.Logger
}

// NewStatusJob creates a new status job.
func NewStatusJob(cfg StatusJobConfig) *StatusJob {
	return &StatusJob{
		composer:   cfg.Composer,
		outputFile: cfg.OutputFile,
		publisher:  cfg.Publisher,
		logger:     cfg.Logger,
	}
}

// RunResult contains the result of a status run.
type RunResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Document   status.Document
	OutputFile string
	Published  bool
	PublishErr error
}

// Run composes the document, writes it and publishes it. Only a write
// failure is returned as an error; publication failures are recorded in
// the result and logged.
func (j *StatusJob) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{StartTime: start, OutputFile: j.outputFile}

	if j.outputFile == "" {
		return nil, ErrNoOutput
	}

	j.logger.Info().Str("output_file", j.outputFile).Msg("starting status run")

	result.Document = j.composer.Compose(ctx)

	if err := status.WriteFile(j.outputFile, result.Document); err != nil {
		j.logger.Error().Err(err).Str("output_file", j.outputFile).Msg("failed to write status document")
		return nil, fmt.Errorf("writing status file: %w", err)
	}

	j.logger.Info().Str("output_file", j.outputFile).Msg("status document written")

	if j.publisher != nil {
		result.PublishErr = j.publish(ctx, result.Document)
		result.Published = result.PublishErr == nil
		if result.PublishErr != nil {
			j.logger.Warn().Err(result.PublishErr).Msg("failed to publish status document")
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(start)

	j.logger.Info().
		Dur("duration", result.Duration).
		Str("platform_status", string(result.Document.PlatformStatus)).
		Str("backup_status", string(result.Document.Backups.LastBackupStatus)).
		Bool("published", result.Published).
		Msg("status run completed")

	return result, nil
}

func (j *StatusJob) publish(ctx context.Context, doc status.Document) error {
	data, err := status.Encode(doc)
	if err != nil {
		return err
	}

	return j.publisher.Publish(ctx, data, map[string]string{
		"platform_status": string(doc.PlatformStatus),
		"backup_status":   string(doc.Backups.LastBackupStatus),
		"updated_at":      doc.UpdatedAt,
	})
}
