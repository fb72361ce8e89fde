package handlers

import (
	"github.com/valyala/fasthttp"

	"expengine/internal/experiment"
)

// ExperimentPerformance serves GET /v1/experiments/{id}/performance with
// one synthetic sample per arm. The payload is marked simulated so
// comparison views can never be mistaken for recorded metrics — this
// data never enters the metrics store.
func ExperimentPerformance(registry experiment.ExperimentRegistry, sim *experiment.PerformanceSimulator) fasthttp.RequestHandler {
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

		jsonResponse(ctx, map[string]any{
			"experiment_id": exp.ID,
			"simulated":     true,
			"control":       sim.Simulate(exp.ControlAlgorithm),
			"test":          sim.Simulate(exp.TestAlgorithm),
		})
	}
}
