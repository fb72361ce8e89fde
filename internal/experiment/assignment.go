package experiment

import (
	"time"

	"github.com/cespare/xxhash/v2"

	dbpkg "expengine/internal/db"
)

// AssignmentService produces a stable group for (user, experiment) using
// sticky bucketing: a deterministic draw decides the group, and the first
// insert for the pair wins forever, even if the experiment's traffic
// split is later edited.
type AssignmentService struct {
	registry ExperimentRegistry
	store    AssignmentStore
	now      func() time.Time
}

func NewAssignmentService(registry ExperimentRegistry, store AssignmentStore) *AssignmentService {
	return &AssignmentService{
		registry: registry,
		store:    store,
		now:      time.Now,
	}
}

// Assign returns the user's group for the experiment, creating the
// assignment on first call. Returns ErrExperimentNotFound for unknown
// ids and ErrExperimentNotActive for draft/completed experiments (no
// bucketing happens for those).
func (s *AssignmentService) Assign(userID, experimentID string) (*dbpkg.Assignment, error) {
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}

	exp, err := s.registry.Get(experimentID)
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, ErrExperimentNotFound
	}
	if exp.Status != dbpkg.StatusActive {
		return nil, ErrExperimentNotActive
	}

	existing, err := s.store.Find(userID, experimentID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	// The draw is a pure function of (user, experiment), so two racing
	// callers compute the same group and the insert-if-absent below is
	// the only arbiter. A fresh random draw here would make races (and
	// restarts before the insert lands) observable.
	group := dbpkg.GroupControl
	if bucketDraw(userID, experimentID) < exp.TrafficSplit {
		group = dbpkg.GroupTest
	}

	return s.store.InsertIfAbsent(userID, experimentID, group, s.now())
}

// bucketDraw maps (user, experiment) onto [0,1) via a stable hash. The
// top 53 bits of the xxhash keep the full float64 mantissa, so a split
// of 0 can never admit a user and a split of 1 admits everyone.
func bucketDraw(userID, experimentID string) float64 {
	h := xxhash.Sum64String(userID + ":" + experimentID)
	return float64(h>>11) / float64(1<<53)
}
