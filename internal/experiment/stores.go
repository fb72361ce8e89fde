package experiment

import (
	"time"

	dbpkg "expengine/internal/db"
)

// ExperimentRegistry is read access to the set of defined experiments.
// Creation and status transitions are administrative operations that live
// on the concrete stores, outside this contract.
type ExperimentRegistry interface {
	// Get returns the experiment with the given id, or (nil, nil) when
	// no such experiment exists.
	Get(id string) (*dbpkg.Experiment, error)

	// ListActive returns all experiments with status "active", ordered
	// ascending by id. The order is part of the contract: the resolver
	// depends on it for the first-experiment-wins policy.
	ListActive() ([]dbpkg.Experiment, error)

	// List returns all experiments regardless of status, ordered
	// ascending by id.
	List() ([]dbpkg.Experiment, error)
}

// AssignmentStore is the durable (user, experiment) -> group mapping.
type AssignmentStore interface {
	// Find returns the assignment for the pair, or (nil, nil) when the
	// user has not been bucketed for this experiment yet.
	Find(userID, experimentID string) (*dbpkg.Assignment, error)

	// InsertIfAbsent atomically creates the assignment only if none
	// exists for the pair, and returns the row that won — which may be
	// a concurrent caller's. This is the only operation in the engine
	// that needs a strict concurrency guarantee.
	InsertIfAbsent(userID, experimentID, group string, at time.Time) (*dbpkg.Assignment, error)

	// Count returns the total number of assignment rows.
	Count() (int64, error)

	// GroupCounts returns the number of distinct users per group for
	// one experiment. Uniqueness of (user, experiment) makes a plain
	// row count per group equal the distinct-user count.
	GroupCounts(experimentID string) (control, test int64, err error)
}

// MetricsStore is the append-only interaction event log.
type MetricsStore interface {
	// Append stores a new immutable record. There is no update or
	// delete: corrections are compensating records.
	Append(rec *dbpkg.MetricRecord) error

	// CountSince returns the number of records with recorded_at at or
	// after the cutoff.
	CountSince(cutoff time.Time) (int64, error)

	// CountByExperimentSince returns per-experiment record counts for
	// records at or after the cutoff.
	CountByExperimentSince(cutoff time.Time) (map[string]int64, error)
}
