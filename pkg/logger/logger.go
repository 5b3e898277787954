package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ContextKey string

const (
	// RequestIDKey carries the outbound request id; the http client stores it
	// on the request context so facade diagnostics can log it.
	RequestIDKey ContextKey = "requestID"
)

type LogManager interface {
	Debug(args ...any)
	Info(args ...any)
	Warn(args ...any)
	Error(args ...any)

	DebugF(format string, args ...any)
	InfoF(format string, args ...any)
	WarnF(format string, args ...any)
	ErrorF(format string, args ...any)

	DebugFCtx(ctx context.Context, format string, args ...any)
	InfoFCtx(ctx context.Context, format string, args ...any)
	WarnFCtx(ctx context.Context, format string, args ...any)
	ErrorFCtx(ctx context.Context, format string, args ...any)

	With(keyValues ...any) LogManager

	Sync() error
	SetLogLevel(level string) error
}

// LoggerOptions for custom configuration
type LoggerOptions struct {
	Level    string
	Encoding string // "json" or "console"
	// Writer receives log output. When nil, OutputPaths are opened instead
	// (default stderr; stdout carries CLI response bodies).
	Writer       io.Writer
	OutputPaths  []string
	EnableCaller bool
	EnableStack  bool
	TimeFormat   string
}

// NewLogger creates a zap backed logger with options
func NewLogger(opts LoggerOptions) (LogManager, error) {
	atomicLevel := zap.NewAtomicLevel()
	if err := atomicLevel.UnmarshalText([]byte(opts.Level)); err != nil {
		atomicLevel.SetLevel(zap.InfoLevel)
	}

	sink, err := openSink(opts)
	if err != nil {
		return nil, err
	}

	var encoder zapcore.Encoder
	switch opts.Encoding {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig(opts, zapcore.CapitalLevelEncoder))
	case "", "console":
		encoder = zapcore.NewConsoleEncoder(encoderConfig(opts, zapcore.CapitalColorLevelEncoder))
	default:
		return nil, fmt.Errorf("unknown log encoding %q", opts.Encoding)
	}

	zopts := []zap.Option{zap.ErrorOutput(sink)}
	if opts.EnableCaller {
		zopts = append(zopts, zap.AddCaller(), zap.AddCallerSkip(1))
	}
	if opts.EnableStack {
		zopts = append(zopts, zap.AddStacktrace(zap.ErrorLevel))
	}

	zapLogger := zap.New(zapcore.NewCore(encoder, sink, atomicLevel), zopts...)
	return &logger{
		Log:         zapLogger.Sugar(),
		atomicLevel: atomicLevel,
	}, nil
}

func openSink(opts LoggerOptions) (zapcore.WriteSyncer, error) {
	if opts.Writer != nil {
		return zapcore.Lock(zapcore.AddSync(opts.Writer)), nil
	}
	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stderr"}
	}
	sink, _, err := zap.Open(paths...)
	if err != nil {
		return nil, fmt.Errorf("opening log output: %w", err)
	}
	return sink, nil
}

func encoderConfig(opts LoggerOptions, level zapcore.LevelEncoder) zapcore.EncoderConfig {
	timeFormat := opts.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	return zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    level,
		EncodeTime:     zapcore.TimeEncoderOfLayout(timeFormat),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// MustNewDefaultLogger creates a console logger at info level or exits.
func MustNewDefaultLogger() LogManager {
	l, err := NewLogger(LoggerOptions{
		Level:        "info",
		Encoding:     "console",
		EnableCaller: true,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to init logger:", err)
		os.Exit(1)
	}
	return l
}

// FromZap adapts an existing zap logger, e.g. one built on zaptest/observer.
func FromZap(z *zap.Logger) LogManager {
	return &logger{
		Log:         z.Sugar(),
		atomicLevel: zap.NewAtomicLevelAt(z.Level()),
	}
}

// NewNop returns a logger that discards everything.
func NewNop() LogManager {
	return FromZap(zap.NewNop())
}
