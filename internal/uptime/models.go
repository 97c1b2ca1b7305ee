package uptime

import (
	"math"
	"time"
)

// MonitorStatus is the state code reported by the monitoring API.
type MonitorStatus int

const (
	StatusDown        MonitorStatus = 0
	StatusUp          MonitorStatus = 1
	StatusPending     MonitorStatus = 2
	StatusMaintenance MonitorStatus = 3
)

// String returns a lower-case label for the status code.
func (s MonitorStatus) String() string {
	switch s {
	case StatusDown:
		return "down"
	case StatusUp:
		return "up"
	case StatusPending:
		return "pending"
	case StatusMaintenance:
		return "maintenance"
	default:
		return "unrecognized"
	}
}

// Monitor is a snapshot of one health-checked endpoint.
type Monitor struct {
	ID     int
	Name   string
	Status MonitorStatus
}

// Heartbeat is one check result for a monitor.
type Heartbeat struct {
	Status MonitorStatus

	// Time is when the check ran; zero if the API omitted it.
	Time time.Time
}

// PlatformStatus is the worst-of judgment across a monitor set.
type PlatformStatus string

const (
	PlatformOperational PlatformStatus = "operational"
	PlatformDegraded    PlatformStatus = "degraded"
	PlatformOutage      PlatformStatus = "outage"
	PlatformUnknown     PlatformStatus = "unknown"
)

// Window is a trailing duration over which uptime is computed.
type Window struct {
	Name  string
	Hours int
}

// Windows are the reporting windows, in document order.
var Windows = []Window{
	{Name: "last_24h", Hours: 24},
	{Name: "last_7d", Hours: 24 * 7},
	{Name: "last_30d", Hours: 24 * 30},
}

// Report holds mean uptime percentages per window.
type Report struct {
	Last24h float64
	Last7d  float64
	Last30d float64
}

// Set stores pct under the window of the given name.
func (r *Report) Set(window string, pct float64) {
	switch window {
	case "last_24h":
		r.Last24h = pct
	case "last_7d":
		r.Last7d = pct
	case "last_30d":
		r.Last30d = pct
	}
}

// Result is the outcome of the uptime branch.
type Result struct {
	PlatformStatus PlatformStatus
	Uptime         Report

	// Monitors is the number of monitors the result was derived from.
	Monitors int
}

// roundPercent clamps pct to [0,100] and rounds it to 2 decimals.
func roundPercent(pct float64) float64 {
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	if pct > 100 {
		pct = 100
	}
	return math.Round(pct*100) / 100
}
