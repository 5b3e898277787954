// Command reqfacade sends a single request through a facade and prints the
// response body.
//
//	reqfacade [flags] METHOD PATH
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/pflag"

	"github.com/milan604/reqfacade/pkg/apperr"
	"github.com/milan604/reqfacade/pkg/config"
	"github.com/milan604/reqfacade/pkg/facade"
	reqhttp "github.com/milan604/reqfacade/pkg/http"
	"github.com/milan604/reqfacade/pkg/logger"
	"github.com/milan604/reqfacade/pkg/observability"
	"github.com/milan604/reqfacade/pkg/version"
)

const envPrefix = "REQFACADE"

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// flagKeys binds flags onto the config keys they override.
var flagKeys = map[string]string{
	"base-url":          config.KeyBaseURL,
	"timeout":           config.KeyTimeout,
	"with-credentials":  config.KeyWithCredentials,
	"request-id-header": config.KeyRequestIDHeader,
	"token":             config.KeyToken,
	"log-level":         config.KeyLogLevel,
	"log-encoding":      config.KeyLogEncoding,
	"otel-endpoint":     config.KeyOTelEndpoint,
}

type invocation struct {
	method  string
	path    string
	query   url.Values
	header  http.Header
	body    any
	unsafe  bool
	metrics bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet(version.Product, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] METHOD PATH\n", version.Product)
		fs.PrintDefaults()
	}

	fs.String("base-url", "", "base URL relative paths are resolved against")
	fs.String("timeout", "", "request timeout, e.g. 3s or 3000 (milliseconds)")
	fs.Bool("with-credentials", false, "keep cookies between redirects")
	fs.String("request-id-header", "", "send a request id in this header")
	fs.String("token", "", "bearer token sent in the Authorization header")
	fs.String("log-level", "info", "log level")
	fs.String("log-encoding", "console", "log encoding: console or json")
	fs.String("otel-endpoint", "", "OTLP/HTTP endpoint for request spans")
	data := fs.StringP("data", "d", "", "JSON request body")
	query := fs.StringArrayP("query", "q", nil, "query param key=value (repeatable)")
	headers := fs.StringArrayP("header", "H", nil, "request header key=value (repeatable)")
	unsafe := fs.Bool("unsafe", false, "log failures and print the recovered value instead of failing")
	metrics := fs.Bool("metrics", false, "print request metrics to stderr")
	cfgFile := fs.String("config", "", "path to a config file")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String())
		return exitOK
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return exitUsage
	}

	inv, err := parseInvocation(fs.Arg(0), fs.Arg(1), *data, *query, *headers)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", version.Product, err)
		return exitUsage
	}
	inv.unsafe = *unsafe
	inv.metrics = *metrics

	cfgOpts := []config.Option{
		config.WithEnv(envPrefix),
		config.WithPFlags(fs, flagKeys),
		config.WithSensitiveKeys(config.KeyToken),
	}
	if *cfgFile != "" {
		cfgOpts = append(cfgOpts, config.WithFile(*cfgFile))
	}
	cfg, err := config.New(cfgOpts...)
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", version.Product, err)
		return exitFailure
	}

	log, err := logger.NewLogger(logger.LoggerOptions{
		Level:    cfg.GetStringD(config.KeyLogLevel, "info"),
		Encoding: cfg.GetStringD(config.KeyLogEncoding, "console"),
		Writer:   stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "%s: failed to configure logger: %v\n", version.Product, err)
		return exitFailure
	}
	defer func() { _ = log.Sync() }()

	return execute(ctx, cfg, log, inv, stdout, stderr)
}

func execute(ctx context.Context, cfg *config.Config, log logger.LogManager, inv invocation, stdout, stderr io.Writer) int {
	log.DebugF("settings: %v", cfg.MaskedSettings())

	var clientOpts []reqhttp.ClientOption

	tracing, err := observability.NewTracing(ctx, log, cfg)
	if err != nil {
		log.ErrorF("tracing setup failed: %v", err)
		return exitFailure
	}
	if tracing != nil {
		defer func() {
			if err := tracing.Shutdown(context.Background()); err != nil {
				log.WarnF("tracing shutdown: %v", err)
			}
		}()
		clientOpts = append(clientOpts, reqhttp.WithTracerProvider(tracing.TracerProvider()))
	}

	var registry *prometheus.Registry
	if inv.metrics {
		registry = prometheus.NewRegistry()
		m, err := observability.NewClientMetrics(registry)
		if err != nil {
			log.ErrorF("metrics setup failed: %v", err)
			return exitFailure
		}
		clientOpts = append(clientOpts, reqhttp.WithMetrics(m))
		defer dumpMetrics(stderr, registry, log)
	}

	f, err := facade.FromConfig(cfg, facade.WithLogger(log), facade.WithClientOptions(clientOpts...))
	if err != nil {
		log.ErrorF("invalid configuration: %v", err)
		return exitFailure
	}

	var out json.RawMessage
	value, err := dispatch(ctx, f, inv, &out)
	if err != nil {
		log.ErrorF("request failed: %v", err)
		return exitFailure
	}
	if err := printValue(stdout, value, out); err != nil {
		log.ErrorF("writing output: %v", err)
		return exitFailure
	}
	return exitOK
}

// dispatch sends inv through f. Safe verbs return (out, nil) or the failure;
// with unsafe set the facade fallback resolves failures instead.
func dispatch(ctx context.Context, f *facade.Facade, inv invocation, out *json.RawMessage) (any, error) {
	opts := []facade.RequestOption{facade.WithHeaders(inv.header)}

	if !inv.unsafe {
		var err error
		switch inv.method {
		case http.MethodGet:
			err = f.Get(ctx, inv.path, inv.query, out, opts...)
		case http.MethodDelete:
			err = f.Delete(ctx, inv.path, inv.query, out, opts...)
		case http.MethodPost:
			err = f.Post(ctx, inv.path, inv.body, out, append(opts, facade.WithQuery(inv.query))...)
		case http.MethodPut:
			err = f.Put(ctx, inv.path, inv.body, out, append(opts, facade.WithQuery(inv.query))...)
		case http.MethodPatch:
			err = f.Patch(ctx, inv.path, inv.body, out, append(opts, facade.WithQuery(inv.query))...)
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	switch inv.method {
	case http.MethodGet:
		return f.UnsafeGet(ctx, inv.path, inv.query, out, nil, opts...)
	case http.MethodDelete:
		return f.UnsafeDelete(ctx, inv.path, inv.query, out, nil, opts...)
	case http.MethodPost:
		return f.UnsafePost(ctx, inv.path, inv.body, out, nil, append(opts, facade.WithQuery(inv.query))...)
	case http.MethodPut:
		return f.UnsafePut(ctx, inv.path, inv.body, out, nil, append(opts, facade.WithQuery(inv.query))...)
	default:
		return f.UnsafePatch(ctx, inv.path, inv.body, out, nil, append(opts, facade.WithQuery(inv.query))...)
	}
}

func parseInvocation(method, path, data string, query, headers []string) (invocation, error) {
	inv := invocation{
		method: strings.ToUpper(method),
		path:   path,
		query:  url.Values{},
		header: http.Header{},
	}

	switch inv.method {
	case http.MethodGet, http.MethodDelete:
		if data != "" {
			return inv, fmt.Errorf("--data is not allowed with %s", inv.method)
		}
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if data != "" {
			if !json.Valid([]byte(data)) {
				return inv, errors.New("--data is not valid JSON")
			}
			inv.body = json.RawMessage(data)
		}
	default:
		return inv, fmt.Errorf("unsupported method %q", method)
	}

	for _, kv := range query {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return inv, fmt.Errorf("query param %q is not key=value", kv)
		}
		inv.query.Add(k, v)
	}
	for _, kv := range headers {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return inv, fmt.Errorf("header %q is not key=value", kv)
		}
		inv.header.Add(strings.TrimSpace(k), strings.TrimSpace(v))
	}
	return inv, nil
}

// printValue writes the response body, or the recovered value when the
// request failed in unsafe mode.
func printValue(w io.Writer, value any, out json.RawMessage) error {
	switch v := value.(type) {
	case *json.RawMessage:
		if len(out) == 0 {
			return nil
		}
		_, err := fmt.Fprintln(w, string(out))
		return err
	case error:
		return json.NewEncoder(w).Encode(apperr.FromError(v))
	default:
		return json.NewEncoder(w).Encode(v)
	}
}

func dumpMetrics(w io.Writer, g prometheus.Gatherer, log logger.LogManager) {
	families, err := g.Gather()
	if err != nil {
		log.WarnF("gathering metrics: %v", err)
		return
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			log.WarnF("writing metrics: %v", err)
			return
		}
	}
}
