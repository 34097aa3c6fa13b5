// Package telemetry provides observability instrumentation for the frost
// compiler: structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and an async event system, unified
// behind a single Telemetry value carried on context.Context.
//
// # Architecture
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - one span per compile, one per loader phase,
//     one around the scheduler's fixpoint loop, one per plugin call
//  3. Metrics Collection - Prometheus counters/gauges/histograms for
//     compile throughput, scheduler queue depth, and plugin latency
//  4. Event Publishing - async event system for compile lifecycle events
//
// # Usage
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "frostc"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	if err := tel.StartMetricsServer(); err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("scheduler")
//	logger = logger.WithCompileID("compile-123").WithEntityName("Host")
//	logger.Info("constructing instance")
//	logger.WithError(err).Error("fixpoint did not converge")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
//	ctx = telemetry.WithCompileContext(ctx, compileID, module)
//	defer telemetry.EndCompileContext(ctx, compileID, status, err)
//
//	ctx = telemetry.WithPhaseContext(ctx, "phase_a", module)
//	defer telemetry.EndPhaseContext(ctx, err)
//
// Supported exporters: OTLP (production), Stdout (development).
//
// # Metrics
//
//	tel.Metrics.RecordCompileStarted(module)
//	tel.Metrics.RecordCompileCompleted("succeeded", duration)
//	tel.Metrics.SetQueueDepth("runnable", len(q.Runnable))
//	tel.Metrics.RecordIteration(module)
//	tel.Metrics.RecordInstanceConstructed("Host")
//	tel.Metrics.RecordPluginCall("net.resolve", duration)
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics).
//
// # Event Publishing
//
//	tel.Events.PublishCompileStarted(compileID, module)
//	tel.Events.PublishFixpointExhausted(compileID, iterations)
//
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))
//
// # Graceful Shutdown
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("telemetry shutdown error: %v", err)
//	}
package telemetry
