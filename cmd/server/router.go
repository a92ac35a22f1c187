package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trustboard/internal/verification/handler"
	"trustboard/pkg/platform/httputil"
	"trustboard/pkg/platform/middleware/metadata"
	"trustboard/pkg/platform/middleware/request"
	"trustboard/pkg/platform/middleware/requesttime"
)

const healthCheckTimeout = 2 * time.Second

func newRouter(log *slog.Logger, single handler.Verifier, cross handler.CrossVerifier, checks map[string]func(context.Context) error, opts ...handler.Option) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Requester)
	r.Use(request.AccessLog(log))

	r.Get("/healthz", healthHandler(checks))
	r.Handle("/metrics", promhttp.Handler())
	handler.New(single, cross, log, opts...).Register(r)
	return r
}

func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		status := map[string]string{}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status[name] = err.Error()
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httputil.WriteJSON(w, code, map[string]any{"status": http.StatusText(code), "checks": status})
	}
}
