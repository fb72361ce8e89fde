package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ExperimentStore is the gorm-backed experiment registry plus the
// administrative operations (creation, status transitions) that sit
// outside the read-only registry contract.
type ExperimentStore struct {
	db *gorm.DB
}

func NewExperimentStore(db *gorm.DB) *ExperimentStore {
	return &ExperimentStore{db: db}
}

// Get returns (nil, nil) when no experiment with the id exists.
func (s *ExperimentStore) Get(id string) (*Experiment, error) {
	var exp Experiment
	if err := s.db.Where("id = ?", id).First(&exp).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &exp, nil
}

// ListActive returns active experiments ascending by id. The order is
// load-bearing for the first-experiment-wins resolution policy.
func (s *ExperimentStore) ListActive() ([]Experiment, error) {
	var exps []Experiment
	if err := s.db.Where("status = ?", StatusActive).Order("id").Find(&exps).Error; err != nil {
		return nil, err
	}
	return exps, nil
}

func (s *ExperimentStore) List() ([]Experiment, error) {
	var exps []Experiment
	if err := s.db.Order("id").Find(&exps).Error; err != nil {
		return nil, err
	}
	return exps, nil
}

// Create persists a new experiment. Callers validate first; this only
// fills defaults. A duplicate id surfaces as an error from the unique
// primary key.
func (s *ExperimentStore) Create(exp *Experiment) error {
	now := time.Now()
	if exp.Status == "" {
		exp.Status = StatusDraft
	}
	if exp.Status == StatusActive && exp.StartDate == nil {
		exp.StartDate = &now
	}
	exp.CreatedAt = now
	exp.UpdatedAt = now
	return s.db.Create(exp).Error
}

// SetStatus transitions an experiment to the given status, stamping
// start/end dates as the lifecycle progresses. Transition legality is
// checked by the caller against the current row.
func (s *ExperimentStore) SetStatus(id, status string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	switch status {
	case StatusActive:
		updates["start_date"] = now
	case StatusCompleted:
		updates["end_date"] = now
	}

	res := s.db.Model(&Experiment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
