package testutil

import (
	"net/http"
	"time"

	"activitylog/pkg/requestcontext"
)

// WithCaller attaches an authenticated caller to the request, as the auth
// middleware would after validating a token.
func WithCaller(req *http.Request, email, name, role string) *http.Request {
	ctx := requestcontext.WithActor(req.Context(), requestcontext.Caller{
		Email: email,
		Name:  name,
		Role:  role,
	})
	return req.WithContext(ctx)
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithClientIP sets the client address the metadata middleware would record.
func WithClientIP(req *http.Request, ip string) *http.Request {
	ctx := requestcontext.WithClientMetadata(req.Context(), ip, req.UserAgent())
	return req.WithContext(ctx)
}
