// Package telemetry provides observability instrumentation for plangraph.
//
// The package integrates structured logging (zerolog), tracing
// (OpenTelemetry), metrics (Prometheus) and event publishing behind one
// Telemetry value that travels in a context.Context.
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
//	logger := tel.Logger.NewComponentLogger("estimator")
//	logger = logger.WithProblem("air-cargo-1", digest).WithHeuristic("setlevel")
//	logger.Info("Estimating")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Tracing
//
// Each estimate runs in its own span; every expanded graph level is recorded
// as a span event:
//
//	ctx, span := tel.Tracer.StartEstimateSpan(ctx, id, "setlevel", "air-cargo-1")
//	defer span.End()
//
// Supported exporters: otlp, stdout, none.
//
// # Metrics
//
// Metrics live in their own registry and are served by Metrics.Handler:
//
//	plangraph_graphs_built_total
//	plangraph_layers_expanded_total
//	plangraph_estimates_total{kind,outcome}
//	plangraph_estimate_duration_seconds{kind}
//	plangraph_errors_by_class_total{class,code}
//
// # Events
//
//	tel.Events.Subscribe(func(e telemetry.Event) {
//	    fmt.Println(e.Type, e.Message)
//	}, telemetry.FilterByType(telemetry.EventTypeEstimateUnreachable))
//
// # Operation Helper
//
// StartOperation opens a span, derives a logger carrying the trace ids and
// starts a timer. It degrades to a timer alone when ctx carries no telemetry.
//
//	op := telemetry.StartOperation(ctx, "estimate.batch")
//	defer op.End(err)
package telemetry
