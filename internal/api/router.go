// Package api exposes the transformation service over HTTP.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-deid/internal/infra"
	"github.com/ruslano69/tdtp-deid/internal/request"
	"github.com/ruslano69/tdtp-deid/pkg/plan"
)

// NewRouter wires all dependencies and returns the chi router.
func NewRouter(cfg *infra.Config, inf *infra.Infra, rt *infra.Runtime) http.Handler {
	r := chi.NewRouter()

	r.Use(zerologMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	h := &transformHandler{
		svc:     rt.Service,
		planID:  rt.Plan.ID(),
		tracker: inf.Requests,
		maxBody: cfg.Server.MaxBodyBytes,
		debug:   cfg.Debug,
	}

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(inf))
	r.Get("/plan", handlePlan(rt.Plan))
	r.Post("/transform", h.Transform)

	if inf.Requests != nil {
		r.Get("/requests/{id}", handleGetRequest(inf))
	}
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, promhttp.Handler())
	}

	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports ready once the plan is resolved and Redis (if used) answers.
func handleReadyz(inf *infra.Infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"plan":  "ok",
			"redis": "ok",
		}
		status := http.StatusOK

		if inf.Redis == nil {
			checks["redis"] = "disabled"
		} else if err := inf.Ping(r.Context()); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, checks)
	}
}

func handlePlan(p *plan.Plan) http.HandlerFunc {
	d := p.Describe()
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d)
	}
}

// handleGetRequest retrieves a request record by ID.
func handleGetRequest(inf *infra.Infra) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		req, err := inf.Requests.Get(r.Context(), id)
		if errors.Is(err, request.ErrNotFound) {
			writeError(w, http.StatusNotFound, "request not found")
			return
		}
		if err != nil {
			log.Error().Err(err).Str("request_id", id).Msg("request lookup failed")
			writeError(w, http.StatusServiceUnavailable, "request store unavailable")
			return
		}
		writeJSON(w, http.StatusOK, req)
	}
}
