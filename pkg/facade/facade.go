package facade

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/milan604/reqfacade/pkg/apperr"
	"github.com/milan604/reqfacade/pkg/config"
	reqhttp "github.com/milan604/reqfacade/pkg/http"
	"github.com/milan604/reqfacade/pkg/logger"
	"github.com/milan604/reqfacade/pkg/validator"
)

var settingsValidator = validator.New()

// Facade wraps one request executor and offers shorthand verbs over it.
// It is safe for concurrent use.
type Facade struct {
	client reqhttp.Executor
	log    logger.LogManager

	mu           sync.RWMutex
	errorHandler ErrorHandler
}

// New builds the underlying client for baseURL and wraps it. The client is
// created with a 3000ms timeout and credentials disabled unless options say
// otherwise. Nothing is sent over the network.
func New(baseURL string, opts ...Option) (*Facade, error) {
	s := settings{
		BaseURL: baseURL,
		Timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	if s.log == nil {
		s.log = defaultLogger()
	}

	exec := s.executor
	if exec == nil {
		if err := settingsValidator.Struct(s); err != nil {
			return nil, err
		}
		clientOpts := append([]reqhttp.ClientOption{
			reqhttp.WithBaseURL(s.BaseURL),
			reqhttp.WithCredentials(false),
			reqhttp.WithTimeout(s.Timeout),
			reqhttp.WithLogger(s.log),
		}, s.clientOpts...)

		c, err := reqhttp.NewClient(clientOpts...)
		if err != nil {
			return nil, err
		}
		exec = c
	}

	return &Facade{
		client:       exec,
		log:          s.log,
		errorHandler: s.errorHandler,
	}, nil
}

// MustNew is New that panics on error.
func MustNew(baseURL string, opts ...Option) *Facade {
	f, err := New(baseURL, opts...)
	if err != nil {
		panic(err)
	}
	return f
}

// FromConfig reads facade.* keys from cfg and calls New. opts are applied
// after the configured values.
func FromConfig(cfg *config.Config, opts ...Option) (*Facade, error) {
	var clientOpts []reqhttp.ClientOption
	if cfg.IsSet(config.KeyWithCredentials) {
		clientOpts = append(clientOpts, reqhttp.WithCredentials(cfg.GetBool(config.KeyWithCredentials)))
	}
	if ua := cfg.GetString(config.KeyUserAgent); ua != "" {
		clientOpts = append(clientOpts, reqhttp.WithUserAgent(ua))
	}
	if h := cfg.GetString(config.KeyRequestIDHeader); h != "" {
		clientOpts = append(clientOpts, reqhttp.WithRequestID(h))
	}
	if tok := cfg.GetString(config.KeyToken); tok != "" {
		clientOpts = append(clientOpts, reqhttp.WithTokenProvider(reqhttp.NewStaticTokenProvider(tok), 0))
	}

	all := []Option{
		WithTimeout(cfg.GetDurationD(config.KeyTimeout, DefaultTimeout)),
		WithClientOptions(clientOpts...),
	}
	return New(cfg.GetString(config.KeyBaseURL), append(all, opts...)...)
}

func defaultLogger() logger.LogManager {
	l, err := logger.NewLogger(logger.LoggerOptions{Level: "info", Encoding: "console"})
	if err != nil {
		return logger.NewNop()
	}
	return l
}

// Client returns the wrapped executor.
func (f *Facade) Client() reqhttp.Executor {
	return f.client
}

// ErrorHandler returns the facade's default handler for the Unsafe verbs.
func (f *Facade) ErrorHandler() ErrorHandler {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.errorHandler
}

// SetErrorHandler replaces the default handler. Calls that have already
// selected a handler are not affected. nil restores log-and-recover.
func (f *Facade) SetErrorHandler(h ErrorHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errorHandler = h
}

// Request executes cfg and extracts the response body into out.
//
// out may be nil (body discarded), *[]byte, *json.RawMessage or *string (exact
// body bytes), *http.Response from pkg/http (whole response), or anything
// encoding/json can decode into. Failures are returned unchanged.
func (f *Facade) Request(ctx context.Context, cfg reqhttp.RequestConfig, out any) error {
	resp, err := f.client.Execute(ctx, cfg)
	if err != nil {
		return err
	}
	if err := extract(resp, out); err != nil {
		return apperr.New(apperr.ErrorCodeDecode).WithRequest(cfg.Method, cfg.URL).Wrap(err)
	}
	return nil
}

// Get sends GET path with params encoded in the query string.
func (f *Facade) Get(ctx context.Context, path string, params any, out any, opts ...RequestOption) error {
	return f.withParams(ctx, http.MethodGet, path, params, out, opts)
}

// Page is Get with a PageQuery.
func (f *Facade) Page(ctx context.Context, path string, q PageQuery, out any, opts ...RequestOption) error {
	return f.Get(ctx, path, q, out, opts...)
}

// Delete sends DELETE path with params encoded in the query string.
func (f *Facade) Delete(ctx context.Context, path string, params any, out any, opts ...RequestOption) error {
	return f.withParams(ctx, http.MethodDelete, path, params, out, opts)
}

// Post sends POST path with data as the body.
func (f *Facade) Post(ctx context.Context, path string, data any, out any, opts ...RequestOption) error {
	return f.withBody(ctx, http.MethodPost, path, data, out, opts)
}

// Put sends PUT path with data as the body.
func (f *Facade) Put(ctx context.Context, path string, data any, out any, opts ...RequestOption) error {
	return f.withBody(ctx, http.MethodPut, path, data, out, opts)
}

// Patch sends PATCH path with data as the body.
func (f *Facade) Patch(ctx context.Context, path string, data any, out any, opts ...RequestOption) error {
	return f.withBody(ctx, http.MethodPatch, path, data, out, opts)
}

func (f *Facade) withParams(ctx context.Context, method, path string, params any, out any, opts []RequestOption) error {
	values, err := reqhttp.EncodeParams(params)
	if err != nil {
		return apperr.New(apperr.ErrorCodeEncode).WithRequest(method, path).Wrap(err)
	}
	ro := buildRequestOptions(opts)
	return f.send(ctx, ro, reqhttp.RequestConfig{
		Header: ro.header,
		Method: method,
		URL:    path,
		Params: mergeParams(ro.query, values),
	}, out)
}

func (f *Facade) withBody(ctx context.Context, method, path string, data any, out any, opts []RequestOption) error {
	ro := buildRequestOptions(opts)
	return f.send(ctx, ro, reqhttp.RequestConfig{
		Header: ro.header,
		Method: method,
		URL:    path,
		Params: ro.query,
		Data:   data,
	}, out)
}

func (f *Facade) send(ctx context.Context, ro requestOptions, cfg reqhttp.RequestConfig, out any) error {
	if ro.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ro.timeout)
		defer cancel()
	}
	return f.Request(ctx, cfg, out)
}

func extract(resp *reqhttp.Response, out any) error {
	switch o := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*o = append([]byte(nil), resp.Data...)
	case *json.RawMessage:
		*o = append(json.RawMessage(nil), resp.Data...)
	case *string:
		*o = string(resp.Data)
	case *reqhttp.Response:
		*o = *resp
	default:
		if len(bytes.TrimSpace(resp.Data)) == 0 {
			return nil
		}
		return json.Unmarshal(resp.Data, out)
	}
	return nil
}
