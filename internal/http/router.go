// Package httpapi assembles the public HTTP surface: shared middleware,
// operational endpoints, and the admin-only audit log routes.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"activitylog/internal/audit/handler"
	"activitylog/pkg/platform/httputil"
	"activitylog/pkg/platform/middleware/admin"
	"activitylog/pkg/platform/middleware/auth"
	"activitylog/pkg/platform/middleware/metadata"
	"activitylog/pkg/platform/middleware/request"
	"activitylog/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// Deps holds everything the router mounts.
type Deps struct {
	Logger    *slog.Logger
	Validator auth.JWTValidator
	AdminRole string
	AuditLogs *handler.Handler
	// Events mounts POST /api/audit-logs/events when set.
	Events *handler.RecordHandler
	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer prometheus.Gatherer
	// Health is called by /health; nil always reports ok.
	Health func(ctx context.Context) error
}

// NewRouter wires all public endpoints.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recover(d.Logger))
	r.Use(request.RequestID)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(d.Logger))

	r.Get("/health", handleHealth(d.Health))
	r.Handle("/metrics", metricsHandler(d.Gatherer))

	r.Route("/api/audit-logs", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Validator, d.Logger))
		r.Use(admin.RequireRole(d.AdminRole, d.Logger))
		d.AuditLogs.Register(r)
		if d.Events != nil {
			d.Events.Register(r)
		}
	})
	return r
}

func metricsHandler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func handleHealth(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unavailable",
				})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
