package shared

import "context"

type contextKey string

const headersKey contextKey = "assertion_headers"

// WithHeaders attaches the request headers that assertions may inspect
func WithHeaders(ctx context.Context, headers map[string]string) context.Context {
	if len(headers) == 0 {
		return ctx
	}
	return context.WithValue(ctx, headersKey, headers)
}

// HeadersFromContext returns the headers attached by WithHeaders, or nil
func HeadersFromContext(ctx context.Context) map[string]string {
	if headers, ok := ctx.Value(headersKey).(map[string]string); ok {
		return headers
	}
	return nil
}
