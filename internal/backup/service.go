// Package backup derives backup health from object-storage listings.
package backup

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
)

// Source defines the object-storage operations the evaluator depends on.
type Source interface {
	// ListObjects lists every object under prefix.
	ListObjects(ctx context.Context, prefix string) ([]Object, error)

	// StatObject fetches metadata of a single object.
	StatObject(ctx context.Context, key string) (Object, error)

	// Name returns the source name for logging.
	Name() string
}

// ServiceConfig holds configuration for the backup evaluator.
type ServiceConfig struct {
	// Source is the object-storage client.
	Source Source

	// Prefix is the key prefix to list (default: DefaultPrefix).
	Prefix string

	// MaxAgeHours is the maximum acceptable backup age (default: DefaultMaxAgeHours).
	MaxAgeHours float64

	// VerifyLatest stats the newest object and fails the check if it is not accessible.
	VerifyLatest bool

	// Logger for evaluator operations.
	Logger zerolog.Logger
}

// Service evaluates the most recent backup against an age threshold.
type Service struct {
	source       Source
	prefix       string
	maxAgeHours  float64
	verifyLatest bool
	logger       zerolog.Logger
}

// NewService creates a new backup evaluator.
func NewService(cfg ServiceConfig) *Service {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	maxAge := cfg.MaxAgeHours
	if maxAge <= 0 {
		maxAge = DefaultMaxAgeHours
	}

	return &Service{
		source:       cfg.Source,
		prefix:       prefix,
		maxAgeHours:  maxAge,
		verifyLatest: cfg.VerifyLatest,
		logger:       cfg.Logger,
	}
}

// Check lists backups and evaluates them at now. It never returns an
// error: a listing failure is reported as StateUnknown.
func (s *Service) Check(ctx context.Context, now time.Time) Status {
	objects, err := s.source.ListObjects(ctx, s.prefix)
	if err != nil {
		s.logger.Error().Err(err).Str("prefix", s.prefix).Msg("failed to check backup status")
		return Status{
			State:   StateUnknown,
			Message: fmt.Sprintf("Error checking backups: %v", err),
		}
	}

	if len(objects) == 0 {
		s.logger.Warn().Str("prefix", s.prefix).Msg("no backups found")
	} else {
		s.logger.Info().Int("count", len(objects)).Msg("found backup files")
	}

	status := Evaluate(objects, now, s.maxAgeHours)

	if s.verifyLatest && (status.State == StateSuccess || status.State == StateWarning) {
		if !s.Verify(ctx, status.Key) {
			status.State = StateFailed
			status.Message = fmt.Sprintf("Latest backup %s is not accessible", status.Key)
		}
	}

	event := s.logger.Info().
		Str("status", string(status.State)).
		Str("message", status.Message)
	if status.SizeBytes != nil {
		event = event.Str("size", humanize.IBytes(uint64(max(*status.SizeBytes, 0))))
	}
	event.Msg("backup status")

	return status
}

// Verify reports whether the object at key exists and is accessible.
func (s *Service) Verify(ctx context.Context, key string) bool {
	if _, err := s.source.StatObject(ctx, key); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("failed to verify backup")
		return false
	}
	s.logger.Info().Str("key", key).Msg("backup verified")
	return true
}

// Latest returns the object with the greatest LastModified. Objects with
// equal timestamps are ordered by key; the lexicographically largest wins.
func Latest(objects []Object) (Object, bool) {
	if len(objects) == 0 {
		return Object{}, false
	}

	latest := objects[0]
	for _, o := range objects[1:] {
		switch {
		case o.LastModified.After(latest.LastModified):
			latest = o
		case o.LastModified.Equal(latest.LastModified) && o.Key > latest.Key:
			latest = o
		}
	}
	return latest, true
}

// Age returns the age of o at now in hours.
func Age(o Object, now time.Time) float64 {
	return now.Sub(o.LastModified.UTC()).Seconds() / 3600
}

// Evaluate judges the newest of objects against maxAgeHours: younger than
// the threshold is a success, younger than twice the threshold is a
// warning, anything older has failed. No objects at all has failed too.
func Evaluate(objects []Object, now time.Time, maxAgeHours float64) Status {
	latest, ok := Latest(objects)
	if !ok {
		return Status{
			State:   StateFailed,
			Message: "No backups found",
		}
	}

	age := Age(latest, now)

	var state State
	var message string
	switch {
	case age < maxAgeHours:
		state = StateSuccess
		message = fmt.Sprintf("Backup is recent (%.1fh old)", age)
	case age < maxAgeHours*2:
		state = StateWarning
		message = fmt.Sprintf("Backup is aging (%.1fh old)", age)
	default:
		state = StateFailed
		message = fmt.Sprintf("Backup is too old (%.1fh old)", age)
	}

	lastModified := latest.LastModified.UTC()
	rounded := math.Round(age*100) / 100
	size := latest.SizeBytes

	return Status{
		State:          state,
		LastBackupTime: &lastModified,
		AgeHours:       &rounded,
		SizeBytes:      &size,
		Key:            latest.Key,
		Message:        message,
	}
}
