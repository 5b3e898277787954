package facade

import (
	"net/http"
	"net/url"
	"time"

	reqhttp "github.com/milan604/reqfacade/pkg/http"
	"github.com/milan604/reqfacade/pkg/logger"
)

// DefaultTimeout is used when New is not given WithTimeout.
const DefaultTimeout = reqhttp.DefaultTimeout

// Option configures New.
type Option func(*settings)

type settings struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`

	errorHandler ErrorHandler
	clientOpts   []reqhttp.ClientOption
	log          logger.LogManager
	executor     reqhttp.Executor
}

// WithTimeout sets the request timeout of the underlying client.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		s.Timeout = d
	}
}

// WithErrorHandler sets the facade's default handler for the Unsafe verbs.
func WithErrorHandler(h ErrorHandler) Option {
	return func(s *settings) {
		s.errorHandler = h
	}
}

// WithClientOptions passes options to the underlying client. They are
// applied after the facade defaults (base URL, credentials, timeout) and so
// override them.
func WithClientOptions(opts ...reqhttp.ClientOption) Option {
	return func(s *settings) {
		s.clientOpts = append(s.clientOpts, opts...)
	}
}

// WithLogger sets the logger used for the unhandled-error diagnostic and
// passed to the underlying client.
func WithLogger(l logger.LogManager) Option {
	return func(s *settings) {
		if l != nil {
			s.log = l
		}
	}
}

// WithExecutor wraps e instead of building a client. Base URL, timeout and
// client options are then ignored.
func WithExecutor(e reqhttp.Executor) Option {
	return func(s *settings) {
		s.executor = e
	}
}

// RequestOption adjusts a single request. Options cannot change the method,
// path, query params or body chosen by the verb.
type RequestOption func(*requestOptions)

type requestOptions struct {
	header  http.Header
	query   url.Values
	timeout time.Duration
}

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.header == nil {
			o.header = make(http.Header)
		}
		o.header.Set(key, value)
	}
}

// WithHeaders adds all of h to the request headers.
func WithHeaders(h http.Header) RequestOption {
	return func(o *requestOptions) {
		if o.header == nil {
			o.header = make(http.Header)
		}
		for k, vs := range h {
			for _, v := range vs {
				o.header.Add(k, v)
			}
		}
	}
}

// WithQuery adds extra query params. A key also present in the verb's params
// is dropped in favour of the verb's value.
func WithQuery(values url.Values) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = make(url.Values)
		}
		for k, vs := range values {
			for _, v := range vs {
				o.query.Add(k, v)
			}
		}
	}
}

// WithQueryParam adds a single extra query param.
func WithQueryParam(key, value string) RequestOption {
	return WithQuery(url.Values{key: {value}})
}

// WithRequestTimeout bounds this request with a context deadline. An earlier
// deadline on the caller's context still wins.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		o.timeout = d
	}
}

func buildRequestOptions(opts []RequestOption) requestOptions {
	var ro requestOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&ro)
		}
	}
	return ro
}

// mergeParams overlays the verb's params on the option params.
func mergeParams(fromOpts, fromVerb url.Values) url.Values {
	if len(fromOpts) == 0 {
		return fromVerb
	}
	merged := make(url.Values, len(fromOpts)+len(fromVerb))
	for k, vs := range fromOpts {
		merged[k] = append([]string(nil), vs...)
	}
	for k, vs := range fromVerb {
		merged[k] = append([]string(nil), vs...)
	}
	return merged
}
