package db

import (
	"time"

	"gorm.io/gorm"
)

// MetricStore is the gorm-backed append-only interaction event log.
type MetricStore struct {
	db *gorm.DB
}

func NewMetricStore(db *gorm.DB) *MetricStore {
	return &MetricStore{db: db}
}

// Append writes one record. There is deliberately no update or delete
// here: corrections are compensating records, retention is an external
// concern.
func (s *MetricStore) Append(rec *MetricRecord) error {
	return s.db.Create(rec).Error
}

func (s *MetricStore) CountSince(cutoff time.Time) (int64, error) {
	var n int64
	err := s.db.Model(&MetricRecord{}).Where("recorded_at >= ?", cutoff).Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *MetricStore) CountByExperimentSince(cutoff time.Time) (map[string]int64, error) {
	type expRow struct {
		ExperimentID string
		Count        int64
	}
	var rows []expRow
	err := s.db.Model(&MetricRecord{}).
		Where("recorded_at >= ?", cutoff).
		Select("experiment_id as experiment_id, count(*) as count").
		Group("experiment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ExperimentID] = r.Count
	}
	return counts, nil
}
