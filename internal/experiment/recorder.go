package experiment

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	dbpkg "expengine/internal/db"
)

// UnassignedExperiment is the sentinel experiment id for events recorded
// outside any experiment (e.g. a user served the default algorithm).
const UnassignedExperiment = "unassigned"

// MetricTypeCustom is stored in place of metric types outside the known
// set; the caller's raw type is preserved in metadata under
// "reported_type".
const MetricTypeCustom = "custom"

// knownMetricTypes is the enumerated interaction vocabulary. The set is
// open: unknown types are accepted and tagged custom rather than
// rejected, so old servers keep accepting events from newer clients.
var knownMetricTypes = map[string]struct{}{
	"view":               {},
	"click":              {},
	"like":               {},
	"follow":             {},
	"share":              {},
	"comment":            {},
	"profile_view":       {},
	"message_sent":       {},
	"similarity_request": {},
	"api_call":           {},
	"api_error":          {},
	"page_view":          {},
}

// MetricsRecorder validates interaction events and appends them to the
// metrics store.
type MetricsRecorder struct {
	registry ExperimentRegistry
	store    MetricsStore
	now      func() time.Time
}

func NewMetricsRecorder(registry ExperimentRegistry, store MetricsStore) *MetricsRecorder {
	return &MetricsRecorder{
		registry: registry,
		store:    store,
		now:      time.Now,
	}
}

// Record appends one immutable metric record with a generated id and a
// server-assigned timestamp. The experiment id must name an existing
// experiment or be the "unassigned" sentinel; a well-formed event is
// never silently dropped.
func (r *MetricsRecorder) Record(experimentID, userID, metricType string, value float64, algorithmUsed string, metadata map[string]any) (*dbpkg.MetricRecord, error) {
	if experimentID == "" {
		return nil, &ValidationError{Field: "experiment_id", Reason: "must not be empty"}
	}
	if userID == "" {
		return nil, &ValidationError{Field: "user_id", Reason: "must not be empty"}
	}
	if metricType == "" {
		return nil, &ValidationError{Field: "metric_type", Reason: "must not be empty"}
	}
	if algorithmUsed == "" {
		return nil, &ValidationError{Field: "algorithm_used", Reason: "must not be empty"}
	}

	if experimentID != UnassignedExperiment {
		exp, err := r.registry.Get(experimentID)
		if err != nil {
			return nil, err
		}
		if exp == nil {
			return nil, ErrExperimentNotFound
		}
	}

	attrs := datatypes.JSONMap{}
	for k, v := range metadata {
		attrs[k] = v
	}

	if _, ok := knownMetricTypes[metricType]; !ok {
		attrs["reported_type"] = metricType
		metricType = MetricTypeCustom
	}

	rec := &dbpkg.MetricRecord{
		ID:            uuid.NewString(),
		ExperimentID:  experimentID,
		UserID:        userID,
		MetricType:    metricType,
		Value:         value,
		AlgorithmUsed: algorithmUsed,
		RecordedAt:    r.now(),
		Metadata:      attrs,
	}

	if err := r.store.Append(rec); err != nil {
		return nil, err
	}
	return rec, nil
}
