package experiment

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "expengine/internal/db"
	"expengine/internal/memstore"
)

func makeExperiment(id string, split float64, status string) *dbpkg.Experiment {
	return &dbpkg.Experiment{
		ID:               id,
		Name:             "Experiment " + id,
		ControlAlgorithm: "collaborative_filtering",
		TestAlgorithm:    "content_based",
		TrafficSplit:     split,
		Status:           status,
	}
}

func newRegistry(t *testing.T, exps ...*dbpkg.Experiment) *memstore.Store {
	t.Helper()
	store := memstore.New()
	for _, exp := range exps {
		require.NoError(t, store.Create(exp))
	}
	return store
}

func TestAssignIdempotent(t *testing.T) {
	store := newRegistry(t, makeExperiment("exp-1", 0.5, dbpkg.StatusActive))
	svc := NewAssignmentService(store, store)

	first, err := svc.Assign("u1", "exp-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := svc.Assign("u1", "exp-1")
	require.NoError(t, err)
	assert.Equal(t, first.Group, second.Group)
	assert.Equal(t, first.ID, second.ID)

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestAssignSplitZeroAndOne(t *testing.T) {
	store := newRegistry(t,
		makeExperiment("exp-all-control", 0, dbpkg.StatusActive),
		makeExperiment("exp-all-test", 1, dbpkg.StatusActive),
	)
	svc := NewAssignmentService(store, store)

	for i := 0; i < 200; i++ {
		user := fmt.Sprintf("user-%d", i)

		a, err := svc.Assign(user, "exp-all-control")
		require.NoError(t, err)
		assert.Equal(t, dbpkg.GroupControl, a.Group)

		a, err = svc.Assign(user, "exp-all-test")
		require.NoError(t, err)
		assert.Equal(t, dbpkg.GroupTest, a.Group)
	}
}

func TestAssignSplitConvergence(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping convergence check in short mode")
	}

	const users = 100000
	const split = 0.3

	store := newRegistry(t, makeExperiment("exp-1", split, dbpkg.StatusActive))
	svc := NewAssignmentService(store, store)

	var test int
	for i := 0; i < users; i++ {
		a, err := svc.Assign(fmt.Sprintf("user-%d", i), "exp-1")
		require.NoError(t, err)
		if a.Group == dbpkg.GroupTest {
			test++
		}
	}

	fraction := float64(test) / users
	assert.InDelta(t, split, fraction, 0.02, "test-group fraction should converge to the traffic split")
}

func TestAssignStickyAfterSplitChange(t *testing.T) {
	assignments := memstore.New()

	// Everyone lands in test while the split is 1.
	before := newRegistry(t, makeExperiment("exp-1", 1, dbpkg.StatusActive))
	a, err := NewAssignmentService(before, assignments).Assign("u1", "exp-1")
	require.NoError(t, err)
	require.Equal(t, dbpkg.GroupTest, a.Group)

	// Same experiment id with the split edited down to 0: the existing
	// assignment must win over the new draw.
	after := newRegistry(t, makeExperiment("exp-1", 0, dbpkg.StatusActive))
	a, err = NewAssignmentService(after, assignments).Assign("u1", "exp-1")
	require.NoError(t, err)
	assert.Equal(t, dbpkg.GroupTest, a.Group)

	// A user first seen after the change gets the new split's verdict.
	a, err = NewAssignmentService(after, assignments).Assign("u2", "exp-1")
	require.NoError(t, err)
	assert.Equal(t, dbpkg.GroupControl, a.Group)
}

func TestAssignInactiveExperiment(t *testing.T) {
	store := newRegistry(t,
		makeExperiment("exp-draft", 0.5, dbpkg.StatusDraft),
		makeExperiment("exp-done", 0.5, dbpkg.StatusCompleted),
	)
	svc := NewAssignmentService(store, store)

	for _, id := range []string{"exp-draft", "exp-done"} {
		_, err := svc.Assign("u1", id)
		assert.ErrorIs(t, err, ErrExperimentNotActive)
	}

	n, err := store.Count()
	require.NoError(t, err)
	assert.Zero(t, n, "inactive experiments must not create assignments")
}

func TestAssignUnknownExperiment(t *testing.T) {
	store := newRegistry(t)
	svc := NewAssignmentService(store, store)

	_, err := svc.Assign("u1", "nope")
	assert.ErrorIs(t, err, ErrExperimentNotFound)
}

func TestAssignEmptyUser(t *testing.T) {
	store := newRegistry(t, makeExperiment("exp-1", 0.5, dbpkg.StatusActive))
	svc := NewAssignmentService(store, store)

	_, err := svc.Assign("", "exp-1")
	assert.True(t, IsValidation(err))
}

func TestAssignConcurrentSamePair(t *testing.T) {
	store := newRegistry(t, makeExperiment("exp-1", 0.5, dbpkg.StatusActive))
	svc := NewAssignmentService(store, store)

	const callers = 64
	groups := make([]string, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := svc.Assign("u1", "exp-1")
			if assert.NoError(t, err) {
				groups[i] = a.Group
			}
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		assert.Equal(t, groups[0], groups[i], "racing callers must observe the same group")
	}

	n, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestBucketDrawStableAndInRange(t *testing.T) {
	for i := 0; i < 1000; i++ {
		user := fmt.Sprintf("user-%d", i)
		d := bucketDraw(user, "exp-1")
		assert.GreaterOrEqual(t, d, 0.0)
		assert.Less(t, d, 1.0)
		assert.Equal(t, d, bucketDraw(user, "exp-1"), "draw must be reproducible")
	}

	// Different experiments bucket the same user independently.
	assert.NotEqual(t, bucketDraw("u1", "exp-1"), bucketDraw("u1", "exp-2"))
}

func TestAssignedAtComesFromClock(t *testing.T) {
	store := newRegistry(t, makeExperiment("exp-1", 0.5, dbpkg.StatusActive))
	svc := NewAssignmentService(store, store)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	a, err := svc.Assign("u1", "exp-1")
	require.NoError(t, err)
	assert.Equal(t, at, a.AssignedAt)
}
