package requestid

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

// Generate creates a new unique request ID
func Generate() string {
	return uuid.New().String()
}

// ToContext adds a request ID to the context
func ToContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// FromContext extracts the request ID from the context.
// Returns empty string if request ID is not found.
func FromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// SetHeader stamps the outbound request with the request ID carried by its
// context, or a fresh one when there is none. It returns the ID used.
func SetHeader(req *http.Request) string {
	id := FromContext(req.Context())
	if id == "" {
		id = Generate()
	}
	req.Header.Set(middleware.RequestIDHeader, id)
	return id
}

// FromHeader returns the request ID carried by the headers, if any.
func FromHeader(h http.Header) string {
	return h.Get(middleware.RequestIDHeader)
}
