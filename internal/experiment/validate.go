package experiment

import (
	"regexp"

	dbpkg "expengine/internal/db"
)

var experimentIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ValidateExperiment checks a new experiment definition before it is
// persisted. An empty status is allowed (stores default it to draft).
func ValidateExperiment(exp *dbpkg.Experiment) error {
	if exp.ID == "" || !experimentIDPattern.MatchString(exp.ID) {
		return &ValidationError{Field: "id", Reason: "must be a lowercase slug ([a-z0-9_-])"}
	}
	if exp.ID == UnassignedExperiment {
		return &ValidationError{Field: "id", Reason: `"unassigned" is reserved`}
	}
	if exp.Name == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if exp.ControlAlgorithm == "" {
		return &ValidationError{Field: "control_algorithm", Reason: "must not be empty"}
	}
	if exp.TestAlgorithm == "" {
		return &ValidationError{Field: "test_algorithm", Reason: "must not be empty"}
	}
	if exp.TrafficSplit < 0 || exp.TrafficSplit > 1 {
		return &ValidationError{Field: "traffic_split", Reason: "must be within [0,1]"}
	}
	switch exp.Status {
	case "", dbpkg.StatusDraft, dbpkg.StatusActive, dbpkg.StatusCompleted:
	default:
		return &ValidationError{Field: "status", Reason: "must be draft, active or completed"}
	}
	return nil
}

// ValidateStatusTransition enforces the draft -> active -> completed
// lifecycle.
func ValidateStatusTransition(from, to string) error {
	ok := (from == dbpkg.StatusDraft && to == dbpkg.StatusActive) ||
		(from == dbpkg.StatusActive && to == dbpkg.StatusCompleted)
	if !ok {
		return &ValidationError{Field: "status", Reason: "allowed transitions are draft->active and active->completed"}
	}
	return nil
}
