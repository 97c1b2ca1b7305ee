package backup

import (
	"time"
)

// DefaultPrefix is the object-key prefix backups are stored under.
const DefaultPrefix = "backups/"

// DefaultMaxAgeHours is the maximum acceptable backup age.
const DefaultMaxAgeHours = 25.0

// Object is one stored backup artifact.
type Object struct {
	Key          string
	SizeBytes    int64
	LastModified time.Time
	Checksum     string
}

// State is the categorical backup health judgment.
type State string

const (
	StateSuccess State = "success"
	StateWarning State = "warning"
	StateFailed  State = "failed"
	StateUnknown State = "unknown"
)

// Status is the outcome of a backup evaluation. Pointer fields are nil
// when no backup could be examined.
type Status struct {
	State          State
	LastBackupTime *time.Time
	AgeHours       *float64
	SizeBytes      *int64
	Key            string
	Message        string
}
