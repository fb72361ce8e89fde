package handlers

import (
	"github.com/valyala/fasthttp"

	"expengine/internal/config"
	"expengine/internal/experiment"
)

// DashboardSummary serves GET /v1/dashboard. The trailing window for the
// recent-metrics count comes from "days"/"hours" query parameters, with
// the configured default.
func DashboardSummary(agg *experiment.DashboardAggregator, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		window := parseWindow(ctx, cfg.DashboardWindowDays)

		summary, err := agg.Summary(window)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to build dashboard summary")
			return
		}

		jsonResponse(ctx, summary)
	}
}
