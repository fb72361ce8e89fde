package handlers

import (
	"encoding/json"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"

	"expengine/internal/experiment"
)

var (
	resolutionsTotal  *prometheus.CounterVec
	metricEventsTotal *prometheus.CounterVec
)

func InitPrometheusMetrics() {
	resolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "expengine",
			Name:      "resolutions_total",
			Help:      "Total number of algorithm resolutions served.",
		},
		[]string{"experiment", "group", "algorithm"},
	)
	metricEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "expengine",
			Name:      "metric_events_total",
			Help:      "Total number of recorded interaction events.",
		},
		[]string{"experiment", "metric_type", "algorithm"},
	)
	prometheus.MustRegister(resolutionsTotal, metricEventsTotal)
}

type recordRequest struct {
	ExperimentID  string         `json:"experiment_id"`
	UserID        string         `json:"user_id"`
	MetricType    string         `json:"metric_type"`
	Value         *float64       `json:"value,omitempty"`
	AlgorithmUsed string         `json:"algorithm_used"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// RecordMetric serves POST /v1/metrics. A missing value defaults to 1
// (a plain occurrence count). Validation failures are surfaced to the
// caller; a well-formed event is never silently dropped.
func RecordMetric(recorder *experiment.MetricsRecorder) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload recordRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}

		value := 1.0
		if payload.Value != nil {
			value = *payload.Value
		}

		rec, err := recorder.Record(payload.ExperimentID, payload.UserID, payload.MetricType, value, payload.AlgorithmUsed, payload.Metadata)
		if err != nil {
			switch {
			case experiment.IsValidation(err):
				errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			case errors.Is(err, experiment.ErrExperimentNotFound):
				errResponse(ctx, fasthttp.StatusNotFound, "unknown experiment")
			default:
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to record metric")
			}
			return
		}

		metricEventsTotal.WithLabelValues(rec.ExperimentID, rec.MetricType, rec.AlgorithmUsed).Inc()

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, rec)
	}
}
