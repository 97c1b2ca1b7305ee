// Package uptime derives platform status and uptime percentages from
// monitoring API data.
package uptime

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/statusgen/statusgen/internal/provider"
)

// Source defines the monitoring API operations the aggregator depends on.
type Source interface {
	// ListMonitors fetches a snapshot of all monitors.
	ListMonitors(ctx context.Context) ([]Monitor, error)

	// ListHeartbeats fetches heartbeats of one monitor over a trailing window.
	ListHeartbeats(ctx context.Context, monitorID int, windowHours int) ([]Heartbeat, error)

	// Name returns the source name for logging.
	Name() string
}

// ServiceConfig holds configuration for the aggregator.
type ServiceConfig struct {
	// Source is the monitoring API client.
	Source Source

	// MonitorIDs restricts the aggregation to these monitors (optional).
	MonitorIDs []int

	// Logger for aggregator operations.
	Logger zerolog.Logger
}

// Service aggregates monitor data into a platform status and uptime report.
type Service struct {
	source     Source
	monitorIDs []int
	logger     zerolog.Logger
}

// NewService creates a new uptime aggregator.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		source:     cfg.Source,
		monitorIDs: cfg.MonitorIDs,
		logger:     cfg.Logger,
	}
}

// Check lists monitors once and derives both the platform status and the
// uptime report from that snapshot. It fails only if the monitor list
// cannot be fetched.
func (s *Service) Check(ctx context.Context) (*Result, error) {
	monitors, err := s.source.ListMonitors(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing monitors: %w", err)
	}

	selected := FilterMonitors(monitors, s.monitorIDs)

	s.logger.Debug().
		Str("source", s.source.Name()).
		Int("monitors", len(monitors)).
		Int("selected", len(selected)).
		Msg("fetched monitors")

	status := PlatformStatusOf(selected)
	s.logStatus(status, selected)

	return &Result{
		PlatformStatus: status,
		Uptime:         s.aggregate(ctx, selected),
		Monitors:       len(selected),
	}, nil
}

// AggregatedUptime computes the mean uptime of the selected monitors for
// every reporting window. Each monitor is weighted equally regardless of
// how many heartbeats it has.
func (s *Service) AggregatedUptime(ctx context.Context, monitors []Monitor) Report {
	return s.aggregate(ctx, FilterMonitors(monitors, s.monitorIDs))
}

func (s *Service) aggregate(ctx context.Context, selected []Monitor) Report {
	var report Report
	if len(selected) == 0 {
		s.logger.Warn().Msg("no monitors to calculate uptime for")
		return report
	}

	for _, window := range Windows {
		uptimes := make([]float64, 0, len(selected))
		for _, m := range selected {
			if m.ID == 0 {
				continue
			}
			uptimes = append(uptimes, s.monitorUptime(ctx, m.ID, window.Hours))
		}

		avg := Mean(uptimes)
		report.Set(window.Name, avg)

		s.logger.Info().
			Str("window", window.Name).
			Float64("uptime", avg).
			Msg("aggregated uptime")
	}

	return report
}

// monitorUptime returns the uptime of one monitor. A failed heartbeat fetch
// counts as an empty history.
func (s *Service) monitorUptime(ctx context.Context, monitorID, hours int) float64 {
	heartbeats, err := s.source.ListHeartbeats(ctx, monitorID, hours)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("error_kind", provider.Kind(err)).
			Int("monitor_id", monitorID).
			Int("window_hours", hours).
			Msg("failed to fetch heartbeats")
		return 0
	}

	if len(heartbeats) == 0 {
		s.logger.Warn().
			Int("monitor_id", monitorID).
			Int("window_hours", hours).
			Msg("no heartbeats found")
	}

	return Percentage(heartbeats)
}

func (s *Service) logStatus(status PlatformStatus, monitors []Monitor) {
	switch status {
	case PlatformOutage:
		s.logger.Warn().Msg("platform outage detected (monitor(s) down)")
	case PlatformDegraded:
		s.logger.Info().Msg("platform degraded (monitor(s) pending)")
	case PlatformOperational:
		s.logger.Info().Msg("platform operational (all monitors up)")
	default:
		statuses := make([]string, len(monitors))
		for i, m := range monitors {
			statuses[i] = m.Status.String()
		}
		s.logger.Warn().Strs("statuses", statuses).Msg("unknown platform state")
	}
}

// FilterMonitors returns the monitors whose ID is in ids. An empty ids
// selects every monitor.
func FilterMonitors(monitors []Monitor, ids []int) []Monitor {
	if len(ids) == 0 {
		return monitors
	}

	allowed := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}

	filtered := make([]Monitor, 0, len(ids))
	for _, m := range monitors {
		if _, ok := allowed[m.ID]; ok {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// PlatformStatusFor filters monitors to ids and derives the platform status.
func PlatformStatusFor(monitors []Monitor, ids []int) PlatformStatus {
	return PlatformStatusOf(FilterMonitors(monitors, ids))
}

// PlatformStatusOf derives the worst-of status of a monitor set: any DOWN
// is an outage, otherwise any PENDING is degraded, otherwise all UP is
// operational. Anything else, including an empty set, is unknown.
func PlatformStatusOf(monitors []Monitor) PlatformStatus {
	if len(monitors) == 0 {
		return PlatformUnknown
	}

	var down, pending, up int
	for _, m := range monitors {
		switch m.Status {
		case StatusDown:
			down++
		case StatusPending:
			pending++
		case StatusUp:
			up++
		}
	}

	switch {
	case down > 0:
		return PlatformOutage
	case pending > 0:
		return PlatformDegraded
	case up == len(monitors):
		return PlatformOperational
	default:
		return PlatformUnknown
	}
}

// Percentage returns the share of UP heartbeats as a percentage rounded to
// 2 decimals. An empty history is 0.
func Percentage(heartbeats []Heartbeat) float64 {
	if len(heartbeats) == 0 {
		return 0
	}

	up := 0
	for _, h := range heartbeats {
		if h.Status == StatusUp {
			up++
		}
	}

	return roundPercent(100 * float64(up) / float64(len(heartbeats)))
}

// Mean returns the arithmetic mean of percentages rounded to 2 decimals,
// or 0 for an empty slice.
func Mean(percentages []float64) float64 {
	if len(percentages) == 0 {
		return 0
	}

	var sum float64
	for _, p := range percentages {
		sum += p
	}
	return roundPercent(sum / float64(len(percentages)))
}
