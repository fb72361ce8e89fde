package handlers

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	dbpkg "expengine/internal/db"
	"expengine/internal/experiment"
)

// ExperimentAdmin is the write side of experiment administration. Both
// the gorm store and the in-memory store satisfy it; the engine core
// only ever sees the read-only registry.
type ExperimentAdmin interface {
	Create(exp *dbpkg.Experiment) error
	SetStatus(id, status string) error
}

// ListExperiments serves GET /v1/experiments.
func ListExperiments(registry experiment.ExperimentRegistry) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		exps, err := registry.List()
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list experiments")
			return
		}
		jsonResponse(ctx, map[string]any{"experiments": exps})
	}
}

// GetExperiment serves GET /v1/experiments/{id}.
func GetExperiment(registry experiment.ExperimentRegistry) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, _ := ctx.UserValue("id").(string)
		exp, err := registry.Get(id)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load experiment")
			return
		}
		if exp == nil {
			errResponse(ctx, fasthttp.StatusNotFound, "experiment not found")
			return
		}
		jsonResponse(ctx, exp)
	}
}

type createExperimentRequest struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	ControlAlgorithm string  `json:"control_algorithm"`
	TestAlgorithm    string  `json:"test_algorithm"`
	TrafficSplit     float64 `json:"traffic_split"`
	Status           string  `json:"status"`
	CreatedBy        string  `json:"created_by"`
}

// CreateExperiment serves POST /v1/experiments. Experiment definition is
// an administrative action; the engine core only reads the registry.
func CreateExperiment(registry experiment.ExperimentRegistry, admin ExperimentAdmin) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		var payload createExperimentRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}

		exp := &dbpkg.Experiment{
			ID:               payload.ID,
			Name:             payload.Name,
			Description:      payload.Description,
			ControlAlgorithm: payload.ControlAlgorithm,
			TestAlgorithm:    payload.TestAlgorithm,
			TrafficSplit:     payload.TrafficSplit,
			Status:           payload.Status,
			CreatedBy:        payload.CreatedBy,
		}

		if err := experiment.ValidateExperiment(exp); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		existing, err := registry.Get(exp.ID)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to check experiment id")
			return
		}
		if existing != nil {
			errResponse(ctx, fasthttp.StatusConflict, "experiment id already exists")
			return
		}

		if err := admin.Create(exp); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to create experiment")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusCreated)
		jsonResponse(ctx, exp)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

// SetExperimentStatus serves POST /v1/experiments/{id}/status, enforcing
// the draft -> active -> completed lifecycle.
func SetExperimentStatus(registry experiment.ExperimentRegistry, admin ExperimentAdmin) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id, _ := ctx.UserValue("id").(string)

		var payload statusRequest
		if err := json.Unmarshal(ctx.PostBody(), &payload); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "invalid JSON body")
			return
		}

		exp, err := registry.Get(id)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load experiment")
			return
		}
		if exp == nil {
			errResponse(ctx, fasthttp.StatusNotFound, "experiment not found")
			return
		}

		if err := experiment.ValidateStatusTransition(exp.Status, payload.Status); err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		if err := admin.SetStatus(id, payload.Status); err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to update status")
			return
		}

		updated, err := registry.Get(id)
		if err != nil || updated == nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to reload experiment")
			return
		}
		jsonResponse(ctx, updated)
	}
}
