package db

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignmentStore is the gorm-backed (user, experiment) -> group mapping.
// The unique composite index on (user_id, experiment_id) is what makes
// InsertIfAbsent atomic across processes.
type AssignmentStore struct {
	db *gorm.DB
}

func NewAssignmentStore(db *gorm.DB) *AssignmentStore {
	return &AssignmentStore{db: db}
}

// Find returns (nil, nil) when the pair has no assignment yet.
func (s *AssignmentStore) Find(userID, experimentID string) (*Assignment, error) {
	var a Assignment
	err := s.db.Where("user_id = ? AND experiment_id = ?", userID, experimentID).First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// InsertIfAbsent creates the assignment unless one already exists for
// the pair, and returns the winning row. A concurrent duplicate insert
// hits ON CONFLICT DO NOTHING and the existing row is re-read — the
// conflict never surfaces to the caller.
func (s *AssignmentStore) InsertIfAbsent(userID, experimentID, group string, at time.Time) (*Assignment, error) {
	a := Assignment{
		UserID:       userID,
		ExperimentID: experimentID,
		Group:        group,
		AssignedAt:   at,
	}

	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "experiment_id"}},
		DoNothing: true,
	}).Create(&a)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected > 0 {
		return &a, nil
	}

	// Lost the race: another caller inserted first. Its row is the
	// assignment of record.
	existing, err := s.Find(userID, experimentID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return existing, nil
}

func (s *AssignmentStore) Count() (int64, error) {
	var n int64
	if err := s.db.Model(&Assignment{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// GroupCounts returns per-group user counts for one experiment. Because
// (user_id, experiment_id) is unique, row counts are distinct-user
// counts.
func (s *AssignmentStore) GroupCounts(experimentID string) (control, test int64, err error) {
	type groupRow struct {
		Group string
		Count int64
	}
	var rows []groupRow
	err = s.db.Model(&Assignment{}).
		Where("experiment_id = ?", experimentID).
		Select(`"group" as "group", count(*) as count`).
		Group(`"group"`).
		Scan(&rows).Error
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rows {
		switch r.Group {
		case GroupControl:
			control = r.Count
		case GroupTest:
			test = r.Count
		}
	}
	return control, test, nil
}
