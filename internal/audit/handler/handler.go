package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"activitylog/internal/audit/service"
	audit "activitylog/pkg/platform/audit"
	"activitylog/pkg/platform/audit/timerange"
	"activitylog/pkg/platform/httputil"
	"activitylog/pkg/requestcontext"
)

// DefaultRecentLimit applies when /recent has no usable limit parameter.
const DefaultRecentLimit = 100

// Service defines the interface for activity log queries.
type Service interface {
	AllLogs(ctx context.Context) ([]audit.Event, error)
	RecentLogs(ctx context.Context, limit int) ([]audit.Event, error)
	LogsByUser(ctx context.Context, email string) ([]audit.Event, error)
	LogsByAction(ctx context.Context, action string) ([]audit.Event, error)
	LogsByRole(ctx context.Context, role string) ([]audit.Event, error)
	LogsByDateRange(ctx context.Context, token string) ([]audit.Event, error)
	LogsWithFilters(ctx context.Context, f service.Filters) ([]audit.Event, error)
	SearchLogs(ctx context.Context, term string) ([]audit.Event, error)
}

// Handler wires activity log endpoints to the query service.
type Handler struct {
	service     Service
	logger      *slog.Logger
	recentLimit int
}

// New constructs a handler. recentLimit <= 0 uses DefaultRecentLimit.
func New(service Service, logger *slog.Logger, recentLimit int) *Handler {
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &Handler{
		service:     service,
		logger:      logger,
		recentLimit: recentLimit,
	}
}

// Register mounts the endpoints on r. Callers mount r under /api/audit-logs
// behind authentication.
func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.handleAll)
	r.Get("/recent", h.handleRecent)
	r.Get("/user/{email}", h.handleByUser)
	r.Get("/action/{action}", h.handleByAction)
	r.Get("/role/{role}", h.handleByRole)
	r.Get("/date-range/{range}", h.handleByDateRange)
	r.Get("/filter", h.handleFilter)
	r.Get("/search", h.handleSearch)
}

func (h *Handler) handleAll(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, "all", func(ctx context.Context) ([]audit.Event, error) {
		return h.service.AllLogs(ctx)
	})
}

func (h *Handler) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := httputil.QueryInt(r, "limit", h.recentLimit)
	h.respond(w, r, "recent", func(ctx context.Context) ([]audit.Event, error) {
		return h.service.RecentLogs(ctx, limit)
	})
}

func (h *Handler) handleByUser(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	h.respond(w, r, "by_user", func(ctx context.Context) ([]audit.Event, error) {
		return h.service.LogsByUser(ctx, email)
	})
}

func (h *Handler) handleByAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")
	h.respond(w, r, "by_action", func(ctx context.Context) ([]audit.Event, error) {
		return h.service.LogsByAction(ctx, action)
	})
}

func (h *Handler) handleByRole(w http.ResponseWriter, r *http.Request) {
	role := chi.URLParam(r, "role")
	h.respond(w, r, "by_role", func(ctx context.Context) ([]audit.Event, error) {
		return h.service.LogsByRole(ctx, role)
	})
}

func (h *Handler) handleByDateRange(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "range")
	h.respond(w, r, "by_date_range", func(ctx context.Context) ([]audit.Event, error) {
		return h.service.LogsByDateRange(ctx, token)
	})
}

func (h *Handler) handleFilter(w http.ResponseWriter, r *http.Request) {
	f := service.Filters{
		Role:      httputil.QueryString(r, "userRole", ""),
		Action:    httputil.QueryString(r, "action", ""),
		Status:    httputil.QueryString(r, "status", ""),
		DateRange: httputil.QueryString(r, "dateRange", string(timerange.Default)),
	}
	h.respond(w, r, "with_filters", func(ctx context.Context) ([]audit.Event, error) {
		return h.service.LogsWithFilters(ctx, f)
	})
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("searchTerm")
	h.respond(w, r, "search", func(ctx context.Context) ([]audit.Event, error) {
		return h.service.SearchLogs(ctx, term)
	})
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, op string, query func(context.Context) ([]audit.Event, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	events, err := query(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "activity log query failed",
			"request_id", requestID,
			"operation", op,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	h.logger.InfoContext(ctx, "activity log query served",
		"request_id", requestID,
		"operation", op,
		"results", len(events),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, events)
}
