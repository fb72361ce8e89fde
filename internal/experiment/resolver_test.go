package experiment

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "expengine/internal/db"
)

func newResolver(t *testing.T, exps ...*dbpkg.Experiment) *AlgorithmResolver {
	t.Helper()
	store := newRegistry(t, exps...)
	return NewAlgorithmResolver(store, NewAssignmentService(store, store), "fallback_algo")
}

func TestResolveManualOverride(t *testing.T) {
	// An override must win even when an active experiment would match.
	r := newResolver(t, makeExperiment("exp-1", 1, dbpkg.StatusActive))

	res := r.Resolve("u1", "hybrid")
	assert.Equal(t, Resolution{Algorithm: "hybrid", Group: GroupManual}, res)
}

func TestResolveAssignsAndMapsGroup(t *testing.T) {
	exp := makeExperiment("exp-1", 1, dbpkg.StatusActive) // split 1: always test
	r := newResolver(t, exp)

	res := r.Resolve("u1", "")
	assert.Equal(t, exp.TestAlgorithm, res.Algorithm)
	assert.Equal(t, dbpkg.GroupTest, res.Group)
	assert.Equal(t, "exp-1", res.ExperimentID)

	exp0 := makeExperiment("exp-2", 0, dbpkg.StatusActive) // split 0: always control
	r = newResolver(t, exp0)

	res = r.Resolve("u1", "")
	assert.Equal(t, exp0.ControlAlgorithm, res.Algorithm)
	assert.Equal(t, dbpkg.GroupControl, res.Group)
}

func TestResolveIdempotent(t *testing.T) {
	r := newResolver(t, makeExperiment("exp-1", 0.5, dbpkg.StatusActive))

	first := r.Resolve("u1", "")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, r.Resolve("u1", ""))
	}
}

func TestResolveFirstExperimentWins(t *testing.T) {
	a := makeExperiment("exp-a", 1, dbpkg.StatusActive)
	a.TestAlgorithm = "algo_a"
	b := makeExperiment("exp-b", 1, dbpkg.StatusActive)
	b.TestAlgorithm = "algo_b"

	// Creation order must not matter; ascending id does.
	r := newResolver(t, b, a)

	res := r.Resolve("u1", "")
	assert.Equal(t, "exp-a", res.ExperimentID)
	assert.Equal(t, "algo_a", res.Algorithm)
}

func TestResolveDefaultWhenNoActiveExperiment(t *testing.T) {
	r := newResolver(t, makeExperiment("exp-1", 0.5, dbpkg.StatusDraft))

	res := r.Resolve("u1", "")
	assert.Equal(t, Resolution{Algorithm: "fallback_algo", Group: GroupDefault}, res)
}

func TestResolveDefaultOnEmptyRegistry(t *testing.T) {
	r := newResolver(t)

	res := r.Resolve("u1", "")
	assert.Equal(t, GroupDefault, res.Group)
	assert.Equal(t, "fallback_algo", res.Algorithm)
}

// failingRegistry fails every read, standing in for a broken storage
// backend.
type failingRegistry struct{}

func (failingRegistry) Get(string) (*dbpkg.Experiment, error) {
	return nil, errors.New("storage down")
}
func (failingRegistry) ListActive() ([]dbpkg.Experiment, error) {
	return nil, errors.New("storage down")
}
func (failingRegistry) List() ([]dbpkg.Experiment, error) {
	return nil, errors.New("storage down")
}

// failingAssignments fails every operation.
type failingAssignments struct{}

func (failingAssignments) Find(string, string) (*dbpkg.Assignment, error) {
	return nil, errors.New("storage down")
}
func (failingAssignments) InsertIfAbsent(string, string, string, time.Time) (*dbpkg.Assignment, error) {
	return nil, errors.New("storage down")
}
func (failingAssignments) Count() (int64, error) { return 0, errors.New("storage down") }
func (failingAssignments) GroupCounts(string) (int64, int64, error) {
	return 0, 0, errors.New("storage down")
}

func TestResolveFailsClosedOnRegistryError(t *testing.T) {
	reg := failingRegistry{}
	r := NewAlgorithmResolver(reg, NewAssignmentService(reg, failingAssignments{}), "fallback_algo")

	res := r.Resolve("u1", "")
	assert.Equal(t, Resolution{Algorithm: "fallback_algo", Group: GroupDefault}, res)
}

func TestResolveFailsClosedOnAssignmentError(t *testing.T) {
	store := newRegistry(t, makeExperiment("exp-1", 0.5, dbpkg.StatusActive))
	r := NewAlgorithmResolver(store, NewAssignmentService(store, failingAssignments{}), "fallback_algo")

	res := r.Resolve("u1", "")
	require.Equal(t, GroupDefault, res.Group)
	assert.Equal(t, "fallback_algo", res.Algorithm)
}
