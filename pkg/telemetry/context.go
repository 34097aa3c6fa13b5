package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry provides a unified telemetry interface combining logging, tracing, metrics, and events.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

// telemetryContextKey is the context key for telemetry instances.
type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	events, err := NewEventPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}, nil
}

// WithContext adds the telemetry instance to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	ctx = t.Logger.WithContext(ctx)
	return ctx
}

// FromTelemetryContext retrieves the telemetry instance from the context.
// If no telemetry is found, it returns nil.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown gracefully shuts down all telemetry components.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.Events.Shutdown(ctx); err != nil {
		return err
	}
	if err := t.Tracer.Shutdown(ctx); err != nil {
		return err
	}
	return nil
}

// Flush forces all pending telemetry data to be exported.
func (t *Telemetry) Flush(ctx context.Context) error {
	return t.Tracer.ForceFlush(ctx)
}

// StartMetricsServer starts the metrics HTTP server if metrics are enabled.
func (t *Telemetry) StartMetricsServer() error {
	return t.Metrics.StartMetricsServer()
}

// InstrumentedContext bundles a context, span, logger and timer for one
// instrumented operation.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	Timer  *Timer
}

// StartOperation begins an instrumented operation with logging, tracing, and timing.
func StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) *InstrumentedContext {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return &InstrumentedContext{
			Ctx:    ctx,
			Logger: FromContext(ctx),
			Timer:  NewTimer(),
		}
	}

	spanCtx, span := tel.Tracer.StartSpan(ctx, operation, attrs...)

	logger := tel.Logger.WithField("operation", operation)
	if span.SpanContext().IsValid() {
		logger = logger.WithFields(map[string]interface{}{
			"trace_id": span.SpanContext().TraceID().String(),
			"span_id":  span.SpanContext().SpanID().String(),
		})
	}

	return &InstrumentedContext{
		Ctx:    spanCtx,
		Span:   span,
		Logger: logger,
		Timer:  NewTimer(),
	}
}

// End finishes the instrumented operation, recording success or failure.
func (ic *InstrumentedContext) End(err error) {
	if ic.Span != nil {
		if err != nil {
			RecordError(ic.Span, err)
		} else {
			RecordSuccess(ic.Span)
		}
		ic.Span.End()
	}
}

// compileSpanKey is the context key for the top-level compile span.
type compileSpanKey struct{}

// WithCompileContext creates a context enriched with compile-run telemetry
// (§4.4 expansion: "an OpenTelemetry span wraps the run").
func WithCompileContext(ctx context.Context, compileID, module string) context.Context {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return ctx
	}

	spanCtx, span := tel.Tracer.StartCompileSpan(ctx, compileID)

	logger := tel.Logger.WithCompileID(compileID).WithField("module", module)
	spanCtx = logger.WithContext(spanCtx)

	tel.Metrics.RecordCompileStarted(module)
	_ = tel.Events.PublishCompileStarted(compileID, module)

	spanCtx = context.WithValue(spanCtx, compileSpanKey{}, span)
	spanCtx = context.WithValue(spanCtx, compileTimerKey{}, NewTimer())

	return spanCtx
}

type compileTimerKey struct{}

// EndCompileContext completes the compile context, recording metrics and events.
func EndCompileContext(ctx context.Context, compileID, status string, err error) {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return
	}

	if span, ok := ctx.Value(compileSpanKey{}).(trace.Span); ok {
		if err != nil {
			RecordError(span, err)
		} else {
			RecordSuccess(span)
		}
		span.End()
	}

	var duration time.Duration
	if timer, ok := ctx.Value(compileTimerKey{}).(*Timer); ok {
		duration = timer.Duration()
	}

	tel.Metrics.RecordCompileCompleted(status, duration)

	if err != nil {
		_ = tel.Events.PublishCompileFailed(compileID, err.Error())
	} else {
		_ = tel.Events.PublishCompileCompleted(compileID, status, duration)
	}
}

// phaseSpanKey is the context key for loader-phase spans.
type phaseSpanKey struct{}

// WithPhaseContext creates a context enriched with loader-phase telemetry
// (§4.5: Phase A / Phase B).
func WithPhaseContext(ctx context.Context, phase, module string) context.Context {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return ctx
	}

	spanCtx, span := tel.Tracer.StartPhaseSpan(ctx, phase, module)
	logger := tel.Logger.WithField("loader_phase", phase).WithField("module", module)
	spanCtx = logger.WithContext(spanCtx)

	spanCtx = context.WithValue(spanCtx, phaseSpanKey{}, span)
	return spanCtx
}

// EndPhaseContext completes the loader-phase context.
func EndPhaseContext(ctx context.Context, err error) {
	if span, ok := ctx.Value(phaseSpanKey{}).(trace.Span); ok {
		if err != nil {
			RecordError(span, err)
		} else {
			RecordSuccess(span)
		}
		span.End()
	}
}

// pluginSpanKey is the context key for plugin-call spans.
type pluginSpanKey struct{}

// WithPluginContext creates a context enriched with plugin-call telemetry
// (§4.6 expansion).
func WithPluginContext(ctx context.Context, pluginName string) context.Context {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return ctx
	}

	spanCtx, span := tel.Tracer.StartPluginSpan(ctx, pluginName)
	logger := tel.Logger.WithPlugin(pluginName)
	spanCtx = logger.WithContext(spanCtx)

	spanCtx = context.WithValue(spanCtx, pluginSpanKey{}, span)
	return spanCtx
}

// RecordPluginOperation records a plugin invocation with metrics and tracing.
func RecordPluginOperation(ctx context.Context, pluginName string, fn func() error) error {
	tel := FromTelemetryContext(ctx)

	var span trace.Span
	if tel != nil {
		ctx, span = tel.Tracer.StartPluginSpan(ctx, pluginName)
		defer span.End()
	}

	timer := NewTimer()
	err := fn()

	if tel != nil {
		duration := timer.Duration()
		tel.Metrics.RecordPluginCall(pluginName, duration)
		if err != nil {
			tel.Metrics.RecordPluginError(pluginName)
			RecordError(span, err)
		} else {
			RecordSuccess(span)
		}
	}

	return err
}
