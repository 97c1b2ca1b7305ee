package status

import (
	"time"

	"github.com/statusgen/statusgen/internal/backup"
	"github.com/statusgen/statusgen/internal/uptime"
)

// TimeLayout is the ISO-8601 layout used for every timestamp in the document.
const TimeLayout = "2006-01-02T15:04:05.999999Z07:00"

// Document is the status document read by the status page.
type Document struct {
	UpdatedAt      string                `json:"updated_at"`
	PlatformStatus uptime.PlatformStatus `json:"platform_status"`
	Uptime         UptimeSection         `json:"uptime"`
	Backups        BackupSection         `json:"backups"`
}

// UptimeSection holds the uptime percentages per window.
type UptimeSection struct {
	Last24h float64 `json:"last_24h"`
	Last7d  float64 `json:"last_7d"`
	Last30d float64 `json:"last_30d"`
}

// BackupSection holds the backup health. LastBackupTime is always present
// in the JSON, as null when unknown.
type BackupSection struct {
	LastBackupStatus backup.State `json:"last_backup_status"`
	LastBackupTime   *string      `json:"last_backup_time"`
	AgeHours         *float64     `json:"age_hours,omitempty"`
	SizeBytes        *int64       `json:"size_bytes,omitempty"`
	Message          string       `json:"message,omitempty"`
}

// NewDocument returns a document stamped at now with every field at its
// default: unknown statuses and zero uptime.
func NewDocument(now time.Time) Document {
	return Document{
		UpdatedAt:      FormatTime(now),
		PlatformStatus: uptime.PlatformUnknown,
		Backups: BackupSection{
			LastBackupStatus: backup.StateUnknown,
		},
	}
}

// FormatTime formats t in UTC with TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// UptimeOutcome is the result of the uptime branch. Exactly one of Result
// and Err is set.
type UptimeOutcome struct {
	Result *uptime.Result
	Err    error
}

// BackupOutcome is the result of the backup branch. Exactly one of Status
// and Err is set.
type BackupOutcome struct {
	Status *backup.Status
	Err    error
}

// Merge builds the document from the two branch outcomes. A failed branch
// leaves its own fields at their defaults and never touches the other
// branch's fields.
func Merge(now time.Time, u UptimeOutcome, b BackupOutcome) Document {
	doc := NewDocument(now)

	if u.Err == nil && u.Result != nil {
		doc.PlatformStatus = u.Result.PlatformStatus
		doc.Uptime = UptimeSection{
			Last24h: u.Result.Uptime.Last24h,
			Last7d:  u.Result.Uptime.Last7d,
			Last30d: u.Result.Uptime.Last30d,
		}
	}

	if b.Err == nil && b.Status != nil {
		s := b.Status
		doc.Backups = BackupSection{
			LastBackupStatus: s.State,
			AgeHours:         s.AgeHours,
			SizeBytes:        s.SizeBytes,
			Message:          s.Message,
		}
		if s.LastBackupTime != nil {
			formatted := FormatTime(*s.LastBackupTime)
			doc.Backups.LastBackupTime = &formatted
		}
	}

	return doc
}
