package experiment

import (
	"time"

	dbpkg "expengine/internal/db"
)

// DashboardSummary is the aggregate view over the three stores. It is
// advisory: reads are eventually consistent with in-flight writes.
type DashboardSummary struct {
	ActiveExperiments int   `json:"active_experiments"`
	TotalAssignments  int64 `json:"total_assignments"`

	// RecentMetrics counts metric records within the trailing window.
	RecentMetrics int64         `json:"recent_metrics"`
	Window        time.Duration `json:"-"`
	WindowDays    float64       `json:"window_days"`

	Experiments []ExperimentBreakdown `json:"experiments"`

	GeneratedAt time.Time `json:"generated_at"`
}

// ExperimentBreakdown summarizes one experiment for the dashboard.
type ExperimentBreakdown struct {
	ExperimentID string  `json:"experiment_id"`
	Name         string  `json:"name"`
	Status       string  `json:"status"`
	TrafficSplit float64 `json:"traffic_split"`

	ControlUsers int64 `json:"control_users"`
	TestUsers    int64 `json:"test_users"`
	TotalUsers   int64 `json:"total_users"`

	RecentMetrics int64 `json:"recent_metrics"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// DashboardAggregator folds the registry, assignment store and metrics
// store into a summary. It never mutates the stores and tolerates empty
// ones: a fresh instance yields a zeroed summary, not an error.
type DashboardAggregator struct {
	registry    ExperimentRegistry
	assignments AssignmentStore
	metrics     MetricsStore
	now         func() time.Time
}

func NewDashboardAggregator(registry ExperimentRegistry, assignments AssignmentStore, metrics MetricsStore) *DashboardAggregator {
	return &DashboardAggregator{
		registry:    registry,
		assignments: assignments,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Summary computes the dashboard over the trailing window.
func (a *DashboardAggregator) Summary(window time.Duration) (*DashboardSummary, error) {
	if window <= 0 {
		window = 7 * 24 * time.Hour
	}
	now := a.now()
	cutoff := now.Add(-window)

	experiments, err := a.registry.List()
	if err != nil {
		return nil, err
	}

	totalAssignments, err := a.assignments.Count()
	if err != nil {
		return nil, err
	}

	recentMetrics, err := a.metrics.CountSince(cutoff)
	if err != nil {
		return nil, err
	}

	recentByExperiment, err := a.metrics.CountByExperimentSince(cutoff)
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		TotalAssignments: totalAssignments,
		RecentMetrics:    recentMetrics,
		Window:           window,
		WindowDays:       window.Hours() / 24,
		Experiments:      make([]ExperimentBreakdown, 0, len(experiments)),
		GeneratedAt:      now,
	}

	for _, exp := range experiments {
		if exp.Status == dbpkg.StatusActive {
			summary.ActiveExperiments++
		}

		control, test, err := a.assignments.GroupCounts(exp.ID)
		if err != nil {
			return nil, err
		}

		summary.Experiments = append(summary.Experiments, ExperimentBreakdown{
			ExperimentID:  exp.ID,
			Name:          exp.Name,
			Status:        exp.Status,
			TrafficSplit:  exp.TrafficSplit,
			ControlUsers:  control,
			TestUsers:     test,
			TotalUsers:    control + test,
			RecentMetrics: recentByExperiment[exp.ID],
			StartDate:     exp.StartDate,
			EndDate:       exp.EndDate,
			CreatedAt:     exp.CreatedAt,
		})
	}

	return summary, nil
}
