package experiment

import (
	"errors"
	"log"

	dbpkg "expengine/internal/db"
)

// Group labels returned by Resolve beyond control/test.
const (
	GroupManual  = "manual"
	GroupDefault = "default"
)

// Resolution names the algorithm variant that should serve a feature for
// one user, and why.
type Resolution struct {
	Algorithm    string `json:"algorithm"`
	Group        string `json:"group"`
	ExperimentID string `json:"experiment_id,omitempty"`
}

// AlgorithmResolver decides which algorithm serves a user: a manual
// override wins outright, otherwise the first active experiment (ascending
// by id) the user is or becomes assigned to, otherwise the configured
// default.
//
// First-experiment-wins is a deliberate policy: a user is never in two
// active experiments for the same decision point. Independent experiments
// for independent features would need namespaced experiment keys, which
// this engine does not implement.
type AlgorithmResolver struct {
	registry         ExperimentRegistry
	assignments      *AssignmentService
	defaultAlgorithm string
}

func NewAlgorithmResolver(registry ExperimentRegistry, assignments *AssignmentService, defaultAlgorithm string) *AlgorithmResolver {
	return &AlgorithmResolver{
		registry:         registry,
		assignments:      assignments,
		defaultAlgorithm: defaultAlgorithm,
	}
}

// Resolve never fails: on any unexpected storage error it falls back to
// the default algorithm rather than blocking feature delivery, logging
// the cause.
func (r *AlgorithmResolver) Resolve(userID, override string) Resolution {
	if override != "" {
		return Resolution{Algorithm: override, Group: GroupManual}
	}

	active, err := r.registry.ListActive()
	if err != nil {
		log.Printf("resolver: listing active experiments failed, serving default: %v", err)
		return r.defaultResolution()
	}

	for _, exp := range active {
		a, err := r.assignments.Assign(userID, exp.ID)
		if err != nil {
			if errors.Is(err, ErrExperimentNotActive) {
				continue
			}
			log.Printf("resolver: assignment for experiment %s failed, serving default: %v", exp.ID, err)
			return r.defaultResolution()
		}

		algorithm := exp.ControlAlgorithm
		if a.Group == dbpkg.GroupTest {
			algorithm = exp.TestAlgorithm
		}
		return Resolution{Algorithm: algorithm, Group: a.Group, ExperimentID: exp.ID}
	}

	return r.defaultResolution()
}

func (r *AlgorithmResolver) defaultResolution() Resolution {
	return Resolution{Algorithm: r.defaultAlgorithm, Group: GroupDefault}
}
