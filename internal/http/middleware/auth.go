package middleware

import (
	"bytes"
	"strings"

	"github.com/valyala/fasthttp"

	dbpkg "expengine/internal/db"
	httpctx "expengine/internal/http/ctx"
)

// APIKeyLookup resolves a bearer token to an active ingest key. Returns
// (nil, nil) when the token is unknown or disabled.
type APIKeyLookup interface {
	FindActive(key string) (*dbpkg.APIKey, error)
}

// StaticKey is the demo-mode lookup: a single key from config, no
// database involved. An empty StaticKey rejects everything.
type StaticKey string

func (k StaticKey) FindActive(key string) (*dbpkg.APIKey, error) {
	if k == "" || key != string(k) {
		return nil, nil
	}
	return &dbpkg.APIKey{Name: "expengine-internal", Key: key, Active: true}, nil
}

// BearerAuth validates Bearer tokens against ingest API keys.
func BearerAuth(keys APIKeyLookup) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			auth := ctx.Request.Header.Peek("Authorization")
			if len(auth) == 0 {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("missing Authorization header")
				return
			}

			const prefix = "Bearer "
			if !bytes.HasPrefix(auth, []byte(prefix)) {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("invalid Authorization header")
				return
			}

			token := strings.TrimSpace(string(auth[len(prefix):]))
			if token == "" {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("empty bearer token")
				return
			}

			apiKey, err := keys.FindActive(token)
			if err != nil {
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
				ctx.SetBodyString("key lookup error")
				return
			}
			if apiKey == nil {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("invalid API key")
				return
			}

			httpctx.SetAPIKey(ctx, apiKey)
			next(ctx)
		}
	}
}
