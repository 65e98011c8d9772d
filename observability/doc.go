// Package observability wires OpenTelemetry tracing and metrics for
// completion sessions.
//
//	shutdown, err := observability.Setup(ctx, cfg)
//	defer shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter())
//	metrics.SessionEnded(ctx, "qwen", "completed", elapsed)
//
// Spans and instruments are created against the global providers, so they
// cost nothing when export is disabled.
package observability
