// Package memstore provides mutex-guarded in-memory implementations of
// the engine's store contracts. It backs demo mode (no APP_DATABASE_URL)
// and the engine tests; nothing in it survives a restart.
package memstore

import (
	"errors"
	"sort"
	"sync"
	"time"

	dbpkg "expengine/internal/db"
)

// ErrDuplicateExperiment is returned when creating an experiment whose
// id already exists, mirroring the unique-key violation of the
// persistent store.
var ErrDuplicateExperiment = errors.New("experiment id already exists")

// ErrExperimentMissing is returned by SetStatus for unknown ids.
var ErrExperimentMissing = errors.New("experiment does not exist")

type assignmentKey struct {
	UserID       string
	ExperimentID string
}

// Store holds experiments, assignments and metric records in maps. A
// single RWMutex guards everything; InsertIfAbsent is atomic under it,
// which is the one strict concurrency guarantee the engine needs.
type Store struct {
	mu sync.RWMutex

	experiments      map[string]dbpkg.Experiment
	assignments      map[assignmentKey]dbpkg.Assignment
	nextAssignmentID uint
	metrics          []dbpkg.MetricRecord
}

func New() *Store {
	return &Store{
		experiments: make(map[string]dbpkg.Experiment),
		assignments: make(map[assignmentKey]dbpkg.Assignment),
	}
}

// Get returns (nil, nil) when no experiment with the id exists.
func (s *Store) Get(id string) (*dbpkg.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exp, ok := s.experiments[id]
	if !ok {
		return nil, nil
	}
	return &exp, nil
}

func (s *Store) ListActive() ([]dbpkg.Experiment, error) {
	return s.list(func(e dbpkg.Experiment) bool { return e.Status == dbpkg.StatusActive })
}

func (s *Store) List() ([]dbpkg.Experiment, error) {
	return s.list(func(dbpkg.Experiment) bool { return true })
}

func (s *Store) list(keep func(dbpkg.Experiment) bool) ([]dbpkg.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exps := make([]dbpkg.Experiment, 0, len(s.experiments))
	for _, e := range s.experiments {
		if keep(e) {
			exps = append(exps, e)
		}
	}
	sort.Slice(exps, func(i, j int) bool { return exps[i].ID < exps[j].ID })
	return exps, nil
}

// Create persists a new experiment. Callers validate first.
func (s *Store) Create(exp *dbpkg.Experiment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.experiments[exp.ID]; ok {
		return ErrDuplicateExperiment
	}

	now := time.Now()
	if exp.Status == "" {
		exp.Status = dbpkg.StatusDraft
	}
	if exp.Status == dbpkg.StatusActive && exp.StartDate == nil {
		exp.StartDate = &now
	}
	if exp.CreatedAt.IsZero() {
		exp.CreatedAt = now
	}
	exp.UpdatedAt = now
	s.experiments[exp.ID] = *exp
	return nil
}

// SetStatus transitions an experiment, stamping start/end dates.
// Transition legality is checked by the caller.
func (s *Store) SetStatus(id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.experiments[id]
	if !ok {
		return ErrExperimentMissing
	}

	now := time.Now()
	exp.Status = status
	exp.UpdatedAt = now
	switch status {
	case dbpkg.StatusActive:
		exp.StartDate = &now
	case dbpkg.StatusCompleted:
		exp.EndDate = &now
	}
	s.experiments[id] = exp
	return nil
}

// Find returns (nil, nil) when the pair has no assignment yet.
func (s *Store) Find(userID, experimentID string) (*dbpkg.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assignments[assignmentKey{userID, experimentID}]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// InsertIfAbsent creates the assignment unless one exists, returning the
// winning row either way.
func (s *Store) InsertIfAbsent(userID, experimentID, group string, at time.Time) (*dbpkg.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := assignmentKey{userID, experimentID}
	if existing, ok := s.assignments[key]; ok {
		return &existing, nil
	}

	s.nextAssignmentID++
	a := dbpkg.Assignment{
		ID:           s.nextAssignmentID,
		UserID:       userID,
		ExperimentID: experimentID,
		Group:        group,
		AssignedAt:   at,
	}
	s.assignments[key] = a
	return &a, nil
}

func (s *Store) Count() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.assignments)), nil
}

func (s *Store) GroupCounts(experimentID string) (control, test int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for key, a := range s.assignments {
		if key.ExperimentID != experimentID {
			continue
		}
		switch a.Group {
		case dbpkg.GroupControl:
			control++
		case dbpkg.GroupTest:
			test++
		}
	}
	return control, test, nil
}

// Append stores one immutable metric record.
func (s *Store) Append(rec *dbpkg.MetricRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = append(s.metrics, *rec)
	return nil
}

func (s *Store) CountSince(cutoff time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, m := range s.metrics {
		if !m.RecordedAt.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountByExperimentSince(cutoff time.Time) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, m := range s.metrics {
		if !m.RecordedAt.Before(cutoff) {
			counts[m.ExperimentID]++
		}
	}
	return counts, nil
}
