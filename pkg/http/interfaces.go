package http

import (
	"context"
	"net/http"
	"net/url"
	"time"
)

// RequestConfig is everything needed to issue one request. URL may be
// relative to the client's base URL.
type RequestConfig struct {
	Method string
	URL    string
	// Params are appended to the URL query.
	Params url.Values
	// Data is the request body; see encodeBody for the accepted shapes.
	Data   any
	Header http.Header
}

// Response is the part of an HTTP exchange the facade consumes.
type Response struct {
	Status int
	Header http.Header
	// Data is the full response body.
	Data []byte
}

// Executor issues a request and returns the response, or an error for
// transport failures and non-2xx statuses.
type Executor interface {
	Execute(ctx context.Context, cfg RequestConfig) (*Response, error)
}

// MetricsRecorder receives one observation per completed attempt.
// status is 0 when no response was received.
type MetricsRecorder interface {
	ObserveRequest(method, host string, status int, elapsed time.Duration)
}

// Ensure Client implements Executor.
var _ Executor = (*Client)(nil)

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, cfg RequestConfig) (*Response, error)

// Execute calls f(ctx, cfg).
func (f ExecutorFunc) Execute(ctx context.Context, cfg RequestConfig) (*Response, error) {
	return f(ctx, cfg)
}
