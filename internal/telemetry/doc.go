// Package telemetry wires OpenTelemetry tracing and metrics for textpack.
//
// Spans and metrics are exported over OTLP (gRPC or HTTP/protobuf) to a
// collector. When telemetry is disabled, or a provider fails to start, the
// instance falls back to the global no-op providers and reports itself as
// degraded instead of failing the caller.
//
//	tel, err := telemetry.New(ctx, telemetry.NewDefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	tracer := tel.Tracer("github.com/fyrsmithlabs/textpack/internal/compression")
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
