// Package logger builds the service's slog.Logger: JSON or text on a writer,
// or bridged to OpenTelemetry, with sampling of warn and error records.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/liamcoop/loancheck/internal/config"
)

// Type alias for slog.Level for easier usage
type Level = slog.Level

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug // -4
	LevelInfo    = slog.LevelInfo  // 0
	LevelWarning = slog.LevelWarn  // 4
	LevelError   = slog.LevelError // 8
	LevelFatal   = slog.Level(12)  // 12
)

var (
	shutdownMu   sync.Mutex
	shutdownFunc func(context.Context) error // nil unless OTEL is enabled
)

// Counters for the metrics endpoint. TotalErrors and TotalWarnings count
// records handled by a logger from New, before sampling. Per-status request
// counts live in the metrics package.
var (
	TotalErrors   atomic.Int64
	TotalWarnings atomic.Int64
	SlowRequests  atomic.Int64
)

// New builds a logger from cfg. JSON and text output go to out; with OTEL
// enabled records are exported over OTLP/gRPC instead, falling back to JSON
// on out if the exporter cannot be created.
func New(cfg config.LoggingConfig, out io.Writer) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	switch {
	case cfg.OTEL.Enabled:
		serviceName := cfg.OTEL.ServiceName
		if serviceName == "" {
			serviceName = "loancheck"
		}
		otelHandler, shutdown, err := setupOTELLogging(context.Background(), serviceName, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to setup OTEL logging, falling back to JSON: %v\n", err)
			handler = slog.NewJSONHandler(out, handlerOptions(level))
			break
		}
		setShutdown(shutdown)
		handler = otelHandler
	case strings.EqualFold(cfg.Format, "text"):
		handler = slog.NewTextHandler(out, handlerOptions(level))
	default:
		handler = slog.NewJSONHandler(out, handlerOptions(level))
	}

	rate := cfg.ErrorSampleRate
	if rate < 1 {
		rate = 1
	}
	return slog.New(&samplingHandler{rate: rate, handler: handler}), nil
}

func handlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && len(groups) == 0 {
				if lvl, ok := a.Value.Any().(slog.Level); ok {
					a.Value = slog.StringValue(levelName(lvl))
				}
			}
			return a
		},
	}
}

func levelName(l slog.Level) string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelFatal:
		return "FATAL"
	default:
		return l.String()
	}
}

// setupOTELLogging configures OpenTelemetry logging
func setupOTELLogging(ctx context.Context, serviceName string, level slog.Level) (slog.Handler, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlploggrpc.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	loggerProvider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	otelHandler := otelslog.NewHandler(
		serviceName,
		otelslog.WithLoggerProvider(loggerProvider),
	)

	return &levelHandler{level: level, handler: otelHandler}, loggerProvider.Shutdown, nil
}

// levelHandler wraps a handler to filter by level
type levelHandler struct {
	level   slog.Leveler
	handler slog.Handler
}

func (h *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *levelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.handler.Handle(ctx, r)
}

func (h *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithAttrs(attrs)}
}

func (h *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: h.level, handler: h.handler.WithGroup(name)}
}

// samplingHandler counts every warn and error record and passes only 1 in
// rate of them on. Fatal records are never sampled.
type samplingHandler struct {
	rate    int
	handler slog.Handler
}

func (h *samplingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *samplingHandler) Handle(ctx context.Context, r slog.Record) error {
	switch {
	case r.Level >= LevelFatal:
		return h.handler.Handle(ctx, r)
	case r.Level >= LevelError:
		TotalErrors.Add(1)
	case r.Level >= LevelWarning:
		TotalWarnings.Add(1)
	default:
		return h.handler.Handle(ctx, r)
	}

	if !shouldSample(h.rate) {
		return nil
	}
	return h.handler.Handle(ctx, r)
}

func (h *samplingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &samplingHandler{rate: h.rate, handler: h.handler.WithAttrs(attrs)}
}

func (h *samplingHandler) WithGroup(name string) slog.Handler {
	return &samplingHandler{rate: h.rate, handler: h.handler.WithGroup(name)}
}

// shouldSample returns true for 1 out of every rate calls on average.
func shouldSample(rate int) bool {
	if rate <= 1 {
		return true
	}
	return rand.IntN(rate) == 0
}

func setShutdown(fn func(context.Context) error) {
	shutdownMu.Lock()
	defer shutdownMu.Unlock()
	shutdownFunc = fn
}

// Shutdown flushes the OTEL exporter, if one was set up. Call it during
// application shutdown.
func Shutdown(ctx context.Context) error {
	shutdownMu.Lock()
	fn := shutdownFunc
	shutdownMu.Unlock()

	if fn != nil {
		return fn(ctx)
	}
	return nil
}

// ParseLevel converts a string level name to slog.Level
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "", "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// Fatal logs at fatal level, flushes OTEL and exits.
func Fatal(l *slog.Logger, msg string, args ...any) {
	l.Log(context.Background(), LevelFatal, msg, args...)
	_ = Shutdown(context.Background())
	os.Exit(1)
}

// WarnSlowRequest increments the slow request counter. The warning record
// logged alongside it is counted by the handler.
func WarnSlowRequest() {
	SlowRequests.Add(1)
}
