package httptransport

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mintgate/pkg/platform/httputil"
)

// Registrar is anything that mounts routes on the root router. Feature
// handlers implement it so main only deals in one shape.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports the liveness of one backing resource.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// NewRouter wires the feature handlers plus the operational endpoints.
func NewRouter(handlers []Registrar, checks map[string]HealthChecker) http.Handler {
	r := chi.NewRouter()

	for _, h := range handlers {
		h.Register(r)
	}

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if err := check.Health(req.Context()); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			}
		}
		httputil.WriteJSON(w, status, body)
	})

	return r
}
