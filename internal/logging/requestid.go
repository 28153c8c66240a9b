package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// requestIDKey is the context key for storing/retrieving request IDs.
type requestIDKey struct{}

// GenerateRequestID creates a new 8-character hex request ID.
func GenerateRequestID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "00000000"
	}
	return hex.EncodeToString(b)
}

// WithRequestID returns a new context with the request ID attached.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// GetRequestID retrieves the request ID from the context.
// Returns empty string if not found.
func GetRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// EnsureRequestID returns ctx unchanged when it already carries a request ID, otherwise a child
// context with a fresh one.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if id := GetRequestID(ctx); id != "" {
		return ctx, id
	}
	id := GenerateRequestID()
	return WithRequestID(ctx, id), id
}
