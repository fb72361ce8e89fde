package db

import (
	"time"

	"gorm.io/datatypes"
)

// Experiment statuses. Experiments move draft -> active -> completed and
// only status and EndDate may change after creation.
const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Assignment groups.
const (
	GroupControl = "control"
	GroupTest    = "test"
)

// Experiment is a configured A/B test comparing a control and a test
// algorithm over a target traffic fraction. The ID is a caller-chosen
// slug (e.g. "exp-1") so dashboards and metric payloads stay readable.
type Experiment struct {
	ID string `gorm:"primaryKey;size:64" json:"id"`

	Name        string `gorm:"size:128;not null" json:"name"`
	Description string `gorm:"size:1024" json:"description"`

	ControlAlgorithm string `gorm:"size:128;not null" json:"control_algorithm"`
	TestAlgorithm    string `gorm:"size:128;not null" json:"test_algorithm"`

	// TrafficSplit is the target fraction of users assigned to the
	// test arm, in [0,1].
	TrafficSplit float64 `gorm:"not null" json:"traffic_split"`

	Status string `gorm:"size:16;not null;index" json:"status"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	CreatedBy string    `gorm:"size:64" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Assignment is the sticky mapping of one user to one group within one
// experiment. The unique composite index is what makes insert-if-absent
// atomic under concurrent resolution (duplicate inserts lose and the
// existing row wins).
type Assignment struct {
	ID uint `gorm:"primaryKey" json:"-"`

	UserID       string `gorm:"uniqueIndex:idx_assignment_user_experiment,priority:1;size:64;not null" json:"user_id"`
	ExperimentID string `gorm:"uniqueIndex:idx_assignment_user_experiment,priority:2;size:64;not null" json:"experiment_id"`

	// Group is write-once: it never changes for a (user, experiment)
	// pair even if the experiment's traffic split is later edited.
	Group string `gorm:"size:16;not null" json:"group"`

	AssignedAt time.Time `json:"assigned_at"`
}

// MetricRecord is one interaction event attributed to an experiment and
// the algorithm that served it. Records are append-only: corrections are
// made by recording compensating records, never by mutation.
type MetricRecord struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	ExperimentID string `gorm:"size:64;not null;index" json:"experiment_id"`
	UserID       string `gorm:"size:64;not null;index" json:"user_id"`

	MetricType string  `gorm:"size:64;not null;index" json:"metric_type"`
	Value      float64 `gorm:"not null" json:"value"`

	AlgorithmUsed string `gorm:"size:128;not null" json:"algorithm_used"`

	RecordedAt time.Time `gorm:"index" json:"recorded_at"`

	// Metadata holds arbitrary key/value pairs for this event, so
	// callers can attach context (e.g. item id, surface, position)
	// without schema changes.
	Metadata datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
}
