package memstore

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "expengine/internal/db"
)

func newExperiment(id string) *dbpkg.Experiment {
	return &dbpkg.Experiment{
		ID:               id,
		Name:             "Experiment " + id,
		ControlAlgorithm: "a",
		TestAlgorithm:    "b",
		TrafficSplit:     0.5,
	}
}

func TestCreateDefaultsAndDuplicates(t *testing.T) {
	s := New()

	exp := newExperiment("exp-1")
	require.NoError(t, s.Create(exp))
	assert.Equal(t, dbpkg.StatusDraft, exp.Status)
	assert.False(t, exp.CreatedAt.IsZero())

	assert.ErrorIs(t, s.Create(newExperiment("exp-1")), ErrDuplicateExperiment)
}

func TestListActiveOrdering(t *testing.T) {
	s := New()
	for _, id := range []string{"exp-c", "exp-a", "exp-b"} {
		exp := newExperiment(id)
		exp.Status = dbpkg.StatusActive
		require.NoError(t, s.Create(exp))
	}
	draft := newExperiment("exp-0")
	require.NoError(t, s.Create(draft))

	active, err := s.ListActive()
	require.NoError(t, err)
	require.Len(t, active, 3)
	assert.Equal(t, "exp-a", active[0].ID)
	assert.Equal(t, "exp-b", active[1].ID)
	assert.Equal(t, "exp-c", active[2].ID)

	all, err := s.List()
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSetStatusStampsLifecycleDates(t *testing.T) {
	s := New()
	require.NoError(t, s.Create(newExperiment("exp-1")))

	require.NoError(t, s.SetStatus("exp-1", dbpkg.StatusActive))
	exp, err := s.Get("exp-1")
	require.NoError(t, err)
	require.NotNil(t, exp.StartDate)
	assert.Nil(t, exp.EndDate)

	require.NoError(t, s.SetStatus("exp-1", dbpkg.StatusCompleted))
	exp, err = s.Get("exp-1")
	require.NoError(t, err)
	require.NotNil(t, exp.EndDate)

	assert.ErrorIs(t, s.SetStatus("nope", dbpkg.StatusActive), ErrExperimentMissing)
}

func TestInsertIfAbsentSingleWinner(t *testing.T) {
	s := New()

	// Callers race with opposite opinions; exactly one row must exist
	// afterwards and everyone must have observed the same group.
	const callers = 100
	results := make([]string, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			group := dbpkg.GroupControl
			if i%2 == 0 {
				group = dbpkg.GroupTest
			}
			a, err := s.InsertIfAbsent("u1", "exp-1", group, time.Now())
			if assert.NoError(t, err) {
				results[i] = a.Group
			}
		}(i)
	}
	wg.Wait()

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	stored, err := s.Find("u1", "exp-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	for i := range results {
		assert.Equal(t, stored.Group, results[i])
	}
}

func TestAssignmentUniquenessAcrossPairs(t *testing.T) {
	s := New()

	for i := 0; i < 10; i++ {
		user := fmt.Sprintf("u%d", i)
		_, err := s.InsertIfAbsent(user, "exp-1", dbpkg.GroupControl, time.Now())
		require.NoError(t, err)
		_, err = s.InsertIfAbsent(user, "exp-2", dbpkg.GroupTest, time.Now())
		require.NoError(t, err)
	}

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(20), n)

	control, test, err := s.GroupCounts("exp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), control)
	assert.Zero(t, test)
}

func TestMetricWindowCounts(t *testing.T) {
	s := New()
	now := time.Now()

	for i, age := range []time.Duration{time.Hour, 48 * time.Hour, 10 * 24 * time.Hour} {
		require.NoError(t, s.Append(&dbpkg.MetricRecord{
			ID:           fmt.Sprintf("rec-%d", i),
			ExperimentID: "exp-1",
			UserID:       "u1",
			MetricType:   "view",
			Value:        1,
			RecordedAt:   now.Add(-age),
		}))
	}

	n, err := s.CountSince(now.Add(-7 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	byExp, err := s.CountByExperimentSince(now.Add(-7 * 24 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), byExp["exp-1"])
}
