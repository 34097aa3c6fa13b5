package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"github.com/frostlang/frost/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "frostc"
	cfg.ServiceVersion = "1.0.0"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	if err := tel.StartMetricsServer(); err != nil {
		panic(err)
	}

	ctx := tel.WithContext(context.Background())

	logger := telemetry.FromContext(ctx)
	logger.Info("compiler started")

	// Output can vary, so we don't specify output for this example
}

// Example_structuredLogging demonstrates structured logging features.
func Example_structuredLogging() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	logger := tel.Logger.NewComponentLogger("scheduler")

	logger = logger.WithFields(map[string]interface{}{
		"compile_id":  "compile-123",
		"entity_name": "Host",
	})

	logger.Debug("entering fixpoint loop")
	logger.Info("instance constructed")
	logger.Warn("index collision detected")

	err := fmt.Errorf("fixpoint did not converge")
	logger.WithError(err).Error("compile failed")

	// Output varies, no output specified
}

// Example_distributedTracing demonstrates distributed tracing usage.
func Example_distributedTracing() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Tracing.Exporter = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ctx, span := tel.Tracer.Start(ctx, "compile.run")
	defer span.End()

	span.SetAttributes(
		attribute.String("compile.id", "compile-789"),
		attribute.Int("module.count", 5),
	)

	span.AddEvent("loader.phase_a_complete")

	ctx, childSpan := tel.Tracer.StartFixpointSpan(ctx, "main")
	defer childSpan.End()

	childSpan.SetAttributes(
		attribute.String("module", "main"),
	)

	time.Sleep(10 * time.Millisecond)

	telemetry.RecordSuccess(childSpan)

	// Output varies, no output specified
}

// Example_metricsCollection demonstrates metrics collection.
func Example_metricsCollection() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Metrics.RecordCompileStarted("main")

	start := time.Now()
	time.Sleep(50 * time.Millisecond)
	duration := time.Since(start)

	tel.Metrics.RecordCompileCompleted("succeeded", duration)

	tel.Metrics.SetQueueDepth("runnable", 12)
	tel.Metrics.RecordIteration("main")
	tel.Metrics.RecordInstanceConstructed("Host")
	tel.Metrics.RecordPluginCall("net.resolve", 15*time.Millisecond)
	tel.Metrics.RecordDiagnostic("typing")

	fmt.Println("Metrics recorded successfully")
	// Output: Metrics recorded successfully
}

// Example_eventPublishing demonstrates event publishing and subscription.
func Example_eventPublishing() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
	}, nil)

	tel.Events.PublishCompileStarted("compile-123", "main")
	tel.Events.PublishInstanceConstructed("compile-123", "Host", "inst-1")
	tel.Events.PublishCompileCompleted("compile-123", "succeeded", 25*time.Millisecond)

	// Output varies due to async nature, no output specified
}

// Example_compileInstrumentation demonstrates instrumenting a complete compile.
func Example_compileInstrumentation() {
	cfg := telemetry.DevelopmentConfig()
	// Keep log lines and exported spans off stdout so only the Println
	// below is compared against the Output comment.
	cfg.Logging.Output = "stderr"
	cfg.Tracing.Exporter = "none"
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	compileID := "compile-123"
	module := "main"
	ctx = telemetry.WithCompileContext(ctx, compileID, module)

	runPhases(ctx)

	telemetry.EndCompileContext(ctx, compileID, "succeeded", nil)

	fmt.Println("Compile instrumentation complete")
	// Output: Compile instrumentation complete
}

func runPhases(ctx context.Context) {
	ctx = telemetry.WithPhaseContext(ctx, "phase_a", "main")

	logger := telemetry.FromContext(ctx)
	logger.Info("running phase a")

	time.Sleep(10 * time.Millisecond)

	telemetry.EndPhaseContext(ctx, nil)
}

// Example_pluginInstrumentation demonstrates instrumenting plugin calls.
func Example_pluginInstrumentation() {
	cfg := telemetry.DevelopmentConfig()
	// Keep exported spans off stdout.
	cfg.Tracing.Exporter = "none"
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ctx = telemetry.WithPluginContext(ctx, "net.resolve")

	err := telemetry.RecordPluginOperation(ctx, "net.resolve", func() error {
		time.Sleep(15 * time.Millisecond)
		return nil
	})

	if err == nil {
		fmt.Println("Plugin call completed successfully")
	}

	// Output: Plugin call completed successfully
}

// Example_instrumentedOperation demonstrates using the InstrumentedContext helper.
func Example_instrumentedOperation() {
	cfg := telemetry.DevelopmentConfig()
	// Keep log lines and exported spans off stdout.
	cfg.Logging.Output = "stderr"
	cfg.Tracing.Exporter = "none"
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ic := telemetry.StartOperation(ctx, "validate_config",
		attribute.String("config.path", "/etc/frostc/config.yaml"),
	)
	defer ic.End(nil)

	ic.Logger.Info("validating configuration")

	time.Sleep(5 * time.Millisecond)

	ic.Logger.Debug("configuration validation complete")

	fmt.Println("Operation instrumentation complete")
	// Output: Operation instrumentation complete
}

// Example_eventFiltering demonstrates event filtering.
func Example_eventFiltering() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Important event: %s\n", event.Type)
	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))

	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Index event: %s\n", event.Message)
	}, telemetry.FilterByType(telemetry.EventTypeIndexCollision))

	tel.Events.PublishCompileStarted("compile-123", "main")
	tel.Events.PublishIndexCollision("compile-123", "Host", "name=web1")
	tel.Events.PublishCompileFailed("compile-123", "fixpoint exhausted")

	// Output varies, no output specified
}

// Example_productionConfiguration demonstrates production-ready configuration.
func Example_productionConfiguration() {
	cfg := telemetry.ProductionConfig()

	cfg.ServiceName = "frostc"
	cfg.ServiceVersion = "1.2.3"
	cfg.Environment = "production"

	cfg.Tracing.Exporter = "otlp"
	cfg.Tracing.Endpoint = "otel-collector.monitoring.svc.cluster.local:4317"
	cfg.Tracing.SamplingRate = 0.1
	cfg.Tracing.Insecure = false

	cfg.Metrics.ListenAddress = ":9090"
	cfg.Metrics.Namespace = "frost"

	cfg.Events.BufferSize = 10000
	cfg.Events.FlushInterval = 5 * time.Second

	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	fmt.Println("Production configuration validated")
	// Output: Production configuration validated
}

// Example_diagnosticRecording demonstrates diagnostic recording with metrics.
func Example_diagnosticRecording() {
	cfg := telemetry.DevelopmentConfig()
	// Keep log lines and exported spans off stdout.
	cfg.Logging.Output = "stderr"
	cfg.Tracing.Exporter = "none"
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	ctx, span := tel.Tracer.Start(ctx, "statement.execute")
	defer span.End()

	err := fmt.Errorf("index lookup did not match any instance")

	if err != nil {
		telemetry.RecordError(span, err)
		tel.Metrics.RecordDiagnostic("not_found")

		logger := telemetry.FromContext(ctx)
		logger.WithError(err).Error("statement failed")
	}

	fmt.Println("Diagnostic recording complete")
	// Output: Diagnostic recording complete
}

// Example_multipleComponents demonstrates telemetry in a multi-component system.
func Example_multipleComponents() {
	cfg := telemetry.DevelopmentConfig()
	// Keep log lines off stdout.
	cfg.Logging.Output = "stderr"
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	loaderLogger := tel.Logger.NewComponentLogger("loader")
	schedulerLogger := tel.Logger.NewComponentLogger("scheduler")
	pluginLogger := tel.Logger.NewComponentLogger("plugin")

	loaderLogger.Info("namespace built")
	schedulerLogger.Info("fixpoint converged")
	pluginLogger.Info("plugin registry loaded")

	fmt.Println("Multi-component logging complete")
	// Output: Multi-component logging complete
}
