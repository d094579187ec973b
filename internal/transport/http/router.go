// Package httptransport assembles the service router. Feature packages own
// their routes; this layer owns the shared middleware stack and the
// operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"attestor/internal/platform/metrics"
	"attestor/internal/platform/middleware"
	"attestor/internal/transport/http/shared"
)

// Feature is anything that can mount routes on the router.
type Feature interface {
	Register(r chi.Router)
}

// HealthChecker reports readiness of one dependency.
type HealthChecker func(ctx context.Context) error

// RouterConfig carries everything the router needs from main.
type RouterConfig struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Features []Feature
	Health   map[string]HealthChecker
	Timeout  time.Duration
}

// NewRouter wires the middleware stack, operational endpoints, and every
// feature's routes.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Timeout(cfg.Timeout))
	r.Use(middleware.ContentTypeJSON)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Latency)
	}

	r.Get("/healthz", handleHealth(cfg.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	for _, feature := range cfg.Features {
		feature.Register(r)
	}
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func handleHealth(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		response := healthResponse{Status: "ok", Checks: map[string]string{}}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				response.Status = "degraded"
				response.Checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			response.Checks[name] = "ok"
		}
		shared.WriteJSON(w, status, response)
	}
}
