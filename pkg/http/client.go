package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/milan604/reqfacade/pkg/apperr"
	"github.com/milan604/reqfacade/pkg/logger"
	"github.com/milan604/reqfacade/pkg/version"
)

const (
	// DefaultTimeout mirrors the facade default of 3000ms.
	DefaultTimeout = 3000 * time.Millisecond
	// DefaultMaxErrorBodyBytes caps the body copied into non-2xx errors.
	DefaultMaxErrorBodyBytes = 64 << 10
	// HeaderRequestID is the default request id header.
	HeaderRequestID = "X-Request-ID"

	tracerName = "github.com/milan604/reqfacade/pkg/http"
)

// Client is the request executor wrapped by the facade. It owns the base URL,
// timeout and credentials policy, and optionally token injection, retries,
// rate limiting, circuit breaking, tracing and metrics. All optional
// behaviour is off unless its option is given.
type Client struct {
	httpClient      *http.Client
	baseURL         *url.URL
	timeout         time.Duration
	withCredentials bool
	header          http.Header
	userAgent       string
	maxErrBody      int64
	requestIDHeader string

	tokenCache    *TokenCache
	logger        logger.LogManager
	retryMax      int
	retryDelay    time.Duration
	requestHooks  []RequestHook
	responseHooks []ResponseHook

	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[*Response]
	tracer   trace.Tracer
	metrics  MetricsRecorder
	baseHTTP *http.Client

	rawBaseURL string
	breakerCfg *gobreaker.Settings
}

// RequestHook is a function that can modify a request before it's sent.
type RequestHook func(*http.Request) error

// ResponseHook is a function that can process a response after it's received.
// The body has already been read; resp.Body replays it.
type ResponseHook func(*http.Response) error

// ClientOption configures the HTTP client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL relative request paths are joined onto.
func WithBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.rawBaseURL = base
	}
}

// WithTimeout sets the whole-exchange timeout. Zero disables it.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithCredentials controls whether cookies set by the server are stored and
// sent back (a cookie jar is attached when true).
func WithCredentials(enabled bool) ClientOption {
	return func(c *Client) {
		c.withCredentials = enabled
	}
}

// WithHTTPClient sets a custom http.Client. Timeout and credentials options are
// applied to a copy of it.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.baseHTTP = hc
	}
}

// WithTransport sets the RoundTripper of the underlying http.Client.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		if c.baseHTTP == nil {
			c.baseHTTP = &http.Client{}
		}
		cp := *c.baseHTTP
		cp.Transport = rt
		c.baseHTTP = &cp
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) {
		c.header.Add(key, value)
	}
}

// WithUserAgent overrides the default "reqfacade/<version>" User-Agent.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxErrorBody caps how much of a non-2xx body is kept on the error.
func WithMaxErrorBody(n int64) ClientOption {
	return func(c *Client) {
		c.maxErrBody = n
	}
}

// WithTokenProvider sets the token provider for service authentication.
func WithTokenProvider(provider TokenProvider, refreshBuffer time.Duration) ClientOption {
	return func(c *Client) {
		c.tokenCache = NewTokenCache(provider, refreshBuffer)
	}
}

// WithLogger sets a logger for the client.
func WithLogger(l logger.LogManager) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithRetry configures retry behavior for transport failures.
// maxAttempts is the maximum number of attempts (including the first).
// delay is the initial delay between retries (will be exponential backoff).
func WithRetry(maxAttempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		c.retryMax = maxAttempts
		c.retryDelay = delay
	}
}

// WithRequestHook adds a hook that runs before each request.
func WithRequestHook(hook RequestHook) ClientOption {
	return func(c *Client) {
		c.requestHooks = append(c.requestHooks, hook)
	}
}

// WithResponseHook adds a hook that runs after each response.
func WithResponseHook(hook ResponseHook) ClientOption {
	return func(c *Client) {
		c.responseHooks = append(c.responseHooks, hook)
	}
}

// WithRequestID sends a request id header on every request. The id is taken
// from the context (logger.WithRequestID) or generated with uuid.
func WithRequestID(header string) ClientOption {
	return func(c *Client) {
		if header == "" {
			header = HeaderRequestID
		}
		c.requestIDHeader = header
	}
}

// WithRateLimit throttles outbound requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCircuitBreaker wraps every request in a gobreaker circuit breaker.
func WithCircuitBreaker(st gobreaker.Settings) ClientOption {
	return func(c *Client) {
		c.breakerCfg = &st
	}
}

// WithTracerProvider records a client span per request and propagates the
// trace context in the request headers.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *Client) {
		if tp == nil {
			tp = otel.GetTracerProvider()
		}
		c.tracer = tp.Tracer(tracerName, trace.WithInstrumentationVersion(version.Version))
	}
}

// WithMetrics reports every attempt to m.
func WithMetrics(m MetricsRecorder) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a new HTTP client with the given options. Defaults:
// DefaultTimeout, no credentials, a single attempt per request.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		timeout:    DefaultTimeout,
		header:     make(http.Header),
		userAgent:  version.UserAgent(),
		maxErrBody: DefaultMaxErrorBodyBytes,
		retryMax:   1,
		retryDelay: 100 * time.Millisecond,
		logger:     logger.NewNop(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if strings.TrimSpace(c.rawBaseURL) != "" {
		u, err := url.Parse(strings.TrimSpace(c.rawBaseURL))
		if err != nil {
			return nil, apperr.New(apperr.ErrorCodeInvalidConfig).Wrap(err)
		}
		if !u.IsAbs() || u.Host == "" {
			return nil, apperr.Newf(apperr.ErrorCodeInvalidConfig, "base url must be absolute: %q", c.rawBaseURL)
		}
		c.baseURL = u
	}

	hc := &http.Client{}
	if c.baseHTTP != nil {
		cp := *c.baseHTTP
		hc = &cp
	}
	hc.Timeout = c.timeout
	hc.Jar = nil
	if c.withCredentials {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, apperr.New(apperr.ErrorCodeInvalidConfig).Wrap(err)
		}
		hc.Jar = jar
	}
	c.httpClient = hc

	if c.breakerCfg != nil {
		st := *c.breakerCfg
		if st.Name == "" {
			st.Name = c.rawBaseURL
		}
		c.breaker = gobreaker.NewCircuitBreaker[*Response](st)
	}

	return c, nil
}

// BaseURL returns the configured base URL, or "".
func (c *Client) BaseURL() string {
	if c.baseURL == nil {
		return ""
	}
	return c.baseURL.String()
}

// Timeout returns the effective whole-exchange timeout.
func (c *Client) Timeout() time.Duration { return c.httpClient.Timeout }

// WithCredentialsEnabled reports whether a cookie jar is attached.
func (c *Client) WithCredentialsEnabled() bool { return c.httpClient.Jar != nil }

// Execute builds the request described by cfg, sends it and returns the
// response body. Failures are *apperr.AppError.
func (c *Client) Execute(ctx context.Context, cfg RequestConfig) (*Response, error) {
	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}

	target, err := c.resolve(cfg.URL, cfg.Params)
	if err != nil {
		return nil, apperr.New(apperr.ErrorCodeInvalidConfig).WithRequest(method, cfg.URL).Wrap(err)
	}

	body, contentType, err := encodeBody(cfg.Data)
	if err != nil {
		return nil, apperr.New(apperr.ErrorCodeEncode).WithRequest(method, target.String()).Wrap(err)
	}

	if c.requestIDHeader != "" {
		id := cfg.Header.Get(c.requestIDHeader)
		if id == "" {
			id = logger.RequestIDFromContext(ctx)
		}
		if id == "" {
			id = uuid.NewString()
		}
		ctx = logger.WithRequestID(ctx, id)
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return nil, apperr.New(apperr.ErrorCodeInvalidConfig).WithRequest(method, target.String()).Wrap(err)
	}
	c.applyHeaders(req, cfg.Header, contentType)
	if c.requestIDHeader != "" {
		req.Header.Set(c.requestIDHeader, logger.RequestIDFromContext(ctx))
	}

	if c.tracer != nil {
		var span trace.Span
		ctx, span = c.tracer.Start(ctx, "HTTP "+method,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.url", target.String()),
			),
		)
		defer span.End()
		req = req.WithContext(ctx)
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	}

	resp, err := c.send(ctx, req, body)
	if c.tracer != nil {
		span := trace.SpanFromContext(ctx)
		if status := responseStatus(resp, err); status != 0 {
			span.SetAttributes(attribute.Int("http.status_code", status))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	return resp, err
}

// send runs the request through the limiter and breaker around the retry loop.
func (c *Client) send(ctx context.Context, req *http.Request, body []byte) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, c.transportError(req, err)
		}
	}

	if err := c.prepareRequest(ctx, req); err != nil {
		return nil, apperr.New(apperr.ErrorCodeTransport).WithRequest(req.Method, req.URL.String()).Wrap(err)
	}

	if c.breaker == nil {
		return c.executeWithRetry(ctx, req, body)
	}
	resp, err := c.breaker.Execute(func() (*Response, error) {
		return c.executeWithRetry(ctx, req, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, apperr.New(apperr.ErrorCodeTransport).WithRequest(req.Method, req.URL.String()).Wrap(err)
	}
	return resp, err
}

// responseStatus is the upstream status of a completed exchange, or 0 when
// no response was received.
func responseStatus(resp *Response, err error) int {
	if resp != nil {
		return resp.Status
	}
	if ae, ok := apperr.As(err); ok {
		return ae.HTTPStatus
	}
	return 0
}

// resolve joins raw onto the base URL path. Query params on the base URL are
// kept unless the request URL or params set the same key.
func (c *Client) resolve(raw string, params url.Values) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	var baseQuery url.Values
	if !u.IsAbs() {
		if c.baseURL == nil {
			return nil, fmt.Errorf("relative url %q without base url", raw)
		}
		base := *c.baseURL
		baseQuery = base.Query()
		base.RawQuery, base.ForceQuery, base.Fragment, base.RawFragment = "", false, "", ""
		if u, err = url.Parse(joinURL(base.String(), raw)); err != nil {
			return nil, err
		}
	}
	if len(params) > 0 || len(baseQuery) > 0 {
		q := u.Query()
		for k, vs := range baseQuery {
			_, inURL := q[k]
			_, inParams := params[k]
			if !inURL && !inParams {
				q[k] = vs
			}
		}
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u, nil
}

func (c *Client) applyHeaders(req *http.Request, extra http.Header, contentType string) {
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range extra {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json, text/plain, */*")
	}
	if req.Header.Get("User-Agent") == "" && c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
}

// prepareRequest applies request hooks and token injection.
func (c *Client) prepareRequest(ctx context.Context, req *http.Request) error {
	if err := c.applyRequestHooks(req); err != nil {
		return err
	}
	return c.injectToken(ctx, req)
}

// applyRequestHooks applies all request hooks.
func (c *Client) applyRequestHooks(req *http.Request) error {
	for _, hook := range c.requestHooks {
		if err := hook(req); err != nil {
			return fmt.Errorf("request hook failed: %w", err)
		}
	}
	return nil
}

// injectToken injects the authorization token if token cache is available.
func (c *Client) injectToken(ctx context.Context, req *http.Request) error {
	if c.tokenCache == nil {
		return nil
	}

	token, err := c.tokenCache.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("failed to get token: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// executeWithRetry executes the request with retry logic and reads the body.
func (c *Client) executeWithRetry(ctx context.Context, req *http.Request, body []byte) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryMax; attempt++ {
		if attempt > 0 {
			if err := c.waitForRetry(ctx, attempt); err != nil {
				return nil, c.transportError(req, err)
			}
		}

		start := time.Now()
		httpResp, err := c.executeRequest(ctx, req, body, attempt)
		if err != nil {
			c.observe(req, 0, start)
			lastErr = c.transportError(req, err)
			if ctx.Err() != nil {
				break
			}
			// the final failure is returned to the caller, who reports it
			if attempt+1 < c.retryMax {
				c.logger.WarnFCtx(ctx, "%s %s failed: %v (attempt %d/%d)", req.Method, req.URL.Redacted(), err, attempt+1, c.retryMax)
			}
			continue
		}

		resp, err := c.readResponse(httpResp)
		c.observe(req, httpResp.StatusCode, start)
		if err != nil {
			return nil, apperr.New(apperr.ErrorCodeDecode).WithRequest(req.Method, req.URL.String()).Wrap(err)
		}

		if err := c.applyResponseHooks(httpResp, resp.Data); err != nil {
			return nil, apperr.New(apperr.ErrorCodeInternal).WithRequest(req.Method, req.URL.String()).Wrap(err)
		}

		if c.shouldRetryOn401(resp.Status, attempt) {
			c.handle401(ctx)
			lastErr = c.statusError(req, resp)
			continue
		}

		if resp.Status < 200 || resp.Status >= 300 {
			return nil, c.statusError(req, resp)
		}
		return resp, nil
	}

	return nil, lastErr
}

// waitForRetry waits for the retry delay with exponential backoff.
func (c *Client) waitForRetry(ctx context.Context, attempt int) error {
	delay := c.retryDelay * time.Duration(1<<uint(attempt-1))
	c.logger.DebugFCtx(ctx, "retrying request after %v (attempt %d/%d)", delay, attempt+1, c.retryMax)

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// executeRequest executes a single request attempt.
func (c *Client) executeRequest(ctx context.Context, req *http.Request, body []byte, attempt int) (*http.Response, error) {
	reqClone := req.Clone(ctx)
	if body != nil {
		reqClone.Body = io.NopCloser(bytes.NewReader(body))
		reqClone.ContentLength = int64(len(body))
		reqClone.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(body)), nil
		}
	}

	if c.tokenCache != nil && attempt > 0 {
		token, err := c.tokenCache.GetToken(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get token for retry: %w", err)
		}
		reqClone.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(reqClone)
}

func (c *Client) readResponse(httpResp *http.Response) (*Response, error) {
	defer httpResp.Body.Close()
	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Data:   data,
	}, nil
}

// applyResponseHooks applies all response hooks. Each hook sees a fresh body.
func (c *Client) applyResponseHooks(resp *http.Response, data []byte) error {
	for _, hook := range c.responseHooks {
		resp.Body = io.NopCloser(bytes.NewReader(data))
		if err := hook(resp); err != nil {
			return fmt.Errorf("response hook failed: %w", err)
		}
	}
	return nil
}

// shouldRetryOn401 checks if we should retry on 401.
func (c *Client) shouldRetryOn401(status, attempt int) bool {
	return status == http.StatusUnauthorized && c.tokenCache != nil && attempt < c.retryMax-1
}

// handle401 handles a 401 response by invalidating the token cache.
func (c *Client) handle401(ctx context.Context) {
	c.logger.InfoFCtx(ctx, "received 401, invalidating token and retrying")
	c.tokenCache.Invalidate()
}

func (c *Client) statusError(req *http.Request, resp *Response) *apperr.AppError {
	body := resp.Data
	if c.maxErrBody > 0 && int64(len(body)) > c.maxErrBody {
		body = body[:c.maxErrBody]
	}
	return apperr.FromStatus(resp.Status, append([]byte(nil), body...)).WithRequest(req.Method, req.URL.String())
}

func (c *Client) transportError(req *http.Request, err error) *apperr.AppError {
	ec := apperr.ErrorCodeTransport
	var ne net.Error
	switch {
	case errors.Is(err, context.Canceled):
		ec = apperr.ErrorCodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		ec = apperr.ErrorCodeTimeout
	case errors.As(err, &ne) && ne.Timeout():
		ec = apperr.ErrorCodeTimeout
	}
	return apperr.New(ec).WithRequest(req.Method, req.URL.String()).Wrap(err)
}

func (c *Client) observe(req *http.Request, status int, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveRequest(req.Method, req.URL.Host, status, time.Since(start))
}
