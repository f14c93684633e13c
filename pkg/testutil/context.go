package testutil

import (
	"net/http"

	id "passtrack/pkg/domain"
	"passtrack/pkg/requestcontext"
)

// WithActor injects an authenticated actor into the request context,
// simulating what the auth middleware does after validating a token.
// An unparsable userID leaves the context unchanged.
func WithActor(req *http.Request, userID, role string) *http.Request {
	ctx := req.Context()
	if parsed, err := id.ParseUserID(userID); err == nil {
		ctx = requestcontext.WithUserID(ctx, parsed)
	}
	if role != "" {
		ctx = requestcontext.WithRole(ctx, role)
	}
	return req.WithContext(ctx)
}

// WithRequestID stamps a request ID on the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
