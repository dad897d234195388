package interceptor

import "context"

type retriedKey struct{}

// WithRetried marks ctx as belonging to a replayed request. Such requests
// are never refreshed and replayed again.
func WithRetried(ctx context.Context) context.Context {
	return context.WithValue(ctx, retriedKey{}, true)
}

// IsRetried reports whether ctx was marked by WithRetried.
func IsRetried(ctx context.Context) bool {
	v, _ := ctx.Value(retriedKey{}).(bool)
	return v
}
