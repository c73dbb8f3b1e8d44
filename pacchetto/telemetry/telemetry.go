package telemetry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/taldoflemis/trattoria/pacchetto"
)

type options struct {
	logWriter io.Writer
	logLevel  slog.Level
}

type Option func(*options)

// WithLogWriter sends the JSON log stream somewhere other than stdout.
// Interactive binaries use it to keep stdout for the user.
func WithLogWriter(w io.Writer) Option {
	return func(o *options) { o.logWriter = w }
}

func WithLogLevel(level slog.Level) Option {
	return func(o *options) { o.logLevel = level }
}

// SetupOTelSDK bootstraps the OpenTelemetry pipeline and the default slog logger.
// If it does not return an error, make sure to call shutdown for proper cleanup.
func SetupOTelSDK(
	ctx context.Context,
	app pacchetto.AppSettings,
	cfg pacchetto.OpenTelemetrySettings,
	opts ...Option,
) (shutdown func(context.Context) error, err error) {
	o := options{logWriter: os.Stdout, logLevel: slog.LevelInfo}
	for _, opt := range opts {
		opt(&o)
	}

	var shutdownFuncs []func(context.Context) error

	// shutdown calls cleanup functions registered via shutdownFuncs.
	// The errors from the calls are joined.
	// Each registered cleanup will be invoked once.
	shutdown = func(ctx context.Context) error {
		var err error
		for _, fn := range shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
		shutdownFuncs = nil
		return err
	}

	res, err := resource.New(
		ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(app.Name),
			semconv.ServiceVersionKey.String(app.Version),
			attribute.String("service.namespace", "trattoria"),
			attribute.String("deployment.environment", app.Env),
		),
	)
	if err != nil {
		return nil, err
	}

	otel.SetTextMapPropagator(newPropagator())

	tracerProvider, err := newTraceProvider(ctx, cfg, res)
	if err != nil {
		return nil, errors.Join(err, shutdown(ctx))
	}
	shutdownFuncs = append(shutdownFuncs, tracerProvider.Shutdown)
	otel.SetTracerProvider(tracerProvider)

	loggerProvider, err := newLoggerProvider(ctx, app, cfg, res, o)
	if err != nil {
		return nil, errors.Join(err, shutdown(ctx))
	}
	shutdownFuncs = append(shutdownFuncs, loggerProvider.Shutdown)
	global.SetLoggerProvider(loggerProvider)

	meterProvider, err := newMeterProvider(ctx, cfg, res)
	if err != nil {
		return nil, errors.Join(err, shutdown(ctx))
	}
	shutdownFuncs = append(shutdownFuncs, meterProvider.Shutdown)
	otel.SetMeterProvider(meterProvider)

	if cfg.Enabled {
		err = runtime.Start(runtime.WithMeterProvider(meterProvider))
		if err != nil {
			return nil, errors.Join(err, shutdown(ctx))
		}
	}

	return shutdown, nil
}

//nolint:ireturn
func newPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

func newTraceProvider(
	ctx context.Context,
	cfg pacchetto.OpenTelemetrySettings,
	res *resource.Resource,
) (*trace.TracerProvider, error) {
	if !cfg.Enabled {
		return trace.NewTracerProvider(trace.WithResource(res)), nil
	}

	otelSpanExporter, err := otlptracegrpc.New(
		ctx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Traces.TimeoutInSec) * time.Second
	sampler := trace.ParentBased(trace.TraceIDRatioBased(cfg.Traces.SampleRate))

	return trace.NewTracerProvider(
		trace.WithBatcher(otelSpanExporter,
			trace.WithBatchTimeout(timeout),
			trace.WithMaxQueueSize(cfg.Traces.MaxQueueSize),
			trace.WithMaxExportBatchSize(cfg.Traces.BatchSize),
		),
		trace.WithSampler(sampler),
		trace.WithResource(res),
	), nil
}

func newLoggerProvider(
	ctx context.Context,
	app pacchetto.AppSettings,
	cfg pacchetto.OpenTelemetrySettings,
	res *resource.Resource,
	o options,
) (*log.LoggerProvider, error) {
	jsonHandler := slog.NewJSONHandler(o.logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     o.logLevel,
	})

	// Set handler pipeline for logging trace ids and errors
	handlerPipeline := slogmulti.Pipe(
		slogmulti.NewHandleInlineMiddleware(traceContextMiddleware),
		slogmulti.NewHandleInlineMiddleware(errorFormattingMiddleware),
	)

	if !cfg.Enabled {
		slog.SetDefault(slog.New(handlerPipeline.Handler(jsonHandler)))
		return log.NewLoggerProvider(log.WithResource(res)), nil
	}

	otlpExporter, err := otlploggrpc.New(
		ctx,
		otlploggrpc.WithEndpoint(cfg.Endpoint),
		otlploggrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(cfg.Logs.IntervalInSec) * time.Second
	timeout := time.Duration(cfg.Logs.TimeoutInSec) * time.Second

	processor := log.NewBatchProcessor(otlpExporter,
		log.WithMaxQueueSize(cfg.Logs.MaxQueueSize),
		log.WithExportMaxBatchSize(cfg.Logs.BatchSize),
		log.WithExportTimeout(timeout),
		log.WithExportInterval(interval),
	)
	loggerProvider := log.NewLoggerProvider(
		log.WithResource(res),
		log.WithProcessor(processor),
	)

	// Here we bridge the OpenTelemetry logger to the slog logger.
	// If we want to change the actual logger we must use another bridge
	otelLogHandler := otelslog.NewHandler(
		app.Name,
		otelslog.WithLoggerProvider(loggerProvider),
		otelslog.WithVersion(app.Version),
		otelslog.WithSource(true),
	)

	logger := slog.New(handlerPipeline.Handler(slogmulti.Fanout(jsonHandler, otelLogHandler)))
	slog.SetDefault(logger)

	logger.InfoContext(ctx, "Logger initialized")

	return loggerProvider, nil
}

func newMeterProvider(
	ctx context.Context,
	cfg pacchetto.OpenTelemetrySettings,
	res *resource.Resource,
) (*metric.MeterProvider, error) {
	if !cfg.Enabled {
		return metric.NewMeterProvider(metric.WithResource(res)), nil
	}

	otlpExporter, err := otlpmetricgrpc.New(
		ctx,
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(cfg.Metrics.IntervalInSec) * time.Second
	timeout := time.Duration(cfg.Metrics.TimeoutInSec) * time.Second

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(
			otlpExporter,
			metric.WithInterval(interval),
			metric.WithTimeout(timeout),
		)),
		metric.WithResource(res),
	), nil
}
