package handlers

import (
	"github.com/valyala/fasthttp"

	"expengine/internal/experiment"
)

// ResolveAlgorithm serves GET /v1/resolve. The caller supplies an
// already-authenticated user id; an optional "override" query parameter
// forces a specific algorithm and bypasses experiment lookup entirely.
func ResolveAlgorithm(resolver *experiment.AlgorithmResolver) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		userID := string(ctx.QueryArgs().Peek("user_id"))
		override := string(ctx.QueryArgs().Peek("override"))

		if userID == "" && override == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "user_id is required")
			return
		}

		res := resolver.Resolve(userID, override)

		expLabel := res.ExperimentID
		if expLabel == "" {
			expLabel = "none"
		}
		resolutionsTotal.WithLabelValues(expLabel, res.Group, res.Algorithm).Inc()

		jsonResponse(ctx, res)
	}
}
