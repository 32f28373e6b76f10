// Package admin gates routes on the caller's role.
package admin

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "activitylog/pkg/domain-errors"
	"activitylog/pkg/platform/httputil"
	request "activitylog/pkg/platform/middleware/request"
	"activitylog/pkg/requestcontext"
)

// RequireRole allows the request only when the authenticated caller holds
// role (compared case-insensitively). It must run after auth.RequireAuth.
func RequireRole(role string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			caller, ok := requestcontext.Actor(ctx)
			if !ok {
				logger.WarnContext(ctx, "role check without authenticated caller",
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}
			if !strings.EqualFold(caller.Role, role) {
				logger.WarnContext(ctx, "forbidden - role mismatch",
					"actor_email", caller.Email,
					"actor_role", caller.Role,
					"request_id", request.GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
