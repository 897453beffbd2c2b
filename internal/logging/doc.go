// Package logging provides structured logging for textpack.
//
// Logger wraps Zap with:
//   - a Trace level (-2) for per-stage pipeline dumps
//   - console output (stderr by default, so CLI payloads on stdout stay clean)
//     and an optional OpenTelemetry bridge
//   - context fields: trace_id, span_id, request.id, profile.id
//   - redaction of payload-bearing fields (text, payload, compressed, ...)
//   - per-level sampling; Error and above are never sampled
//
// Usage:
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig(), nil)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithRequestID(ctx, "req-42")
//	logger.Info(ctx, "compressed text",
//	    zap.Int("original_size", n),
//	    logging.RedactedString("text", input))
//
// Compression inputs are user content. Log sizes and ratios; when content
// must be logged use RedactedString or Preview. The encoder redacts the
// configured field names regardless.
//
// Tests use TestLogger, which records every level in memory:
//
//	tl := logging.NewTestLogger()
//	svc, _ := compression.NewService(cfg, tl.Logger)
//	tl.AssertLogged(t, zapcore.InfoLevel, "batch compressed")
//	tl.AssertRedacted(t)
package logging
