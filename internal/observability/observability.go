// Package observability wires process-wide logging: a console slog handler in
// text or JSON format, optionally fanned out to an OpenTelemetry log exporter
// selected via the standard OTEL_LOGS_EXPORTER / OTEL_EXPORTER_OTLP_PROTOCOL
// environment variables.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const instrumentationName = "github.com/hllvc/tokenrelay"

// Instrument installs the process-wide default logger. format is "text" or
// "json". When an OTel logs exporter is configured in the environment, log
// records at or above level are additionally exported through the slog bridge.
func Instrument(level slog.Level, format string) error {
	var console slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "json":
		console = slog.NewJSONHandler(os.Stderr, opts)
	case "text", "":
		console = slog.NewTextHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unsupported log format: %s", format)
	}

	exporter, err := newLogExporter(context.Background())
	if err != nil {
		return fmt.Errorf("creating log exporter: %w", err)
	}

	handler := console
	if exporter != nil {
		processor := minsev.NewLogProcessor(sdklog.NewBatchProcessor(exporter), otelSeverity(level))
		provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(processor))
		bridge := otelslog.NewHandler(instrumentationName, otelslog.WithLoggerProvider(provider))
		handler = fanout{console, bridge}
	}

	slog.SetDefault(slog.New(handler))
	return nil
}

// newLogExporter builds the exporter selected by OTEL_LOGS_EXPORTER.
// Returns nil when log export is disabled.
func newLogExporter(ctx context.Context) (sdklog.Exporter, error) {
	switch os.Getenv("OTEL_LOGS_EXPORTER") {
	case "", "none":
		return nil, nil
	case "console":
		return stdoutlog.New()
	case "otlp":
		if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "grpc" {
			return otlploggrpc.New(ctx)
		}
		return otlploghttp.New(ctx)
	default:
		return nil, fmt.Errorf("unsupported OTEL_LOGS_EXPORTER: %s", os.Getenv("OTEL_LOGS_EXPORTER"))
	}
}

// otelSeverity maps an slog level onto the minimum OTel severity to export.
func otelSeverity(level slog.Level) minsev.Severity {
	switch {
	case level >= slog.LevelError:
		return minsev.SeverityError
	case level >= slog.LevelWarn:
		return minsev.SeverityWarn
	case level >= slog.LevelInfo:
		return minsev.SeverityInfo
	default:
		return minsev.SeverityDebug
	}
}

// fanout duplicates log records to every wrapped handler.
type fanout []slog.Handler

var _ slog.Handler = (fanout)(nil)

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
