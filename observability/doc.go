// Package observability provides OpenTelemetry tracing and metrics for
// osal components.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &mcfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewProcessMetrics(observability.Meter("osal"))
//	launcher := process.NewLauncher(process.WithMetrics(metrics))
//
// Without initialization the global OpenTelemetry providers are no-ops and
// instrumented code records nothing. A nil *ProcessMetrics is valid and
// records nothing.
package observability
