package compression

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fyrsmithlabs/textpack/internal/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/fyrsmithlabs/textpack/internal/compression"
const meterName = "compression"

// Service wraps the Engine with validation, tracing, metrics and logging.
type Service struct {
	engine *Engine
	config Config
	logger *logging.Logger

	tracer trace.Tracer
	meter  metric.Meter

	// Metrics
	compressionCounter   metric.Int64Counter
	compressionTime      metric.Float64Histogram
	compressionRatio     metric.Float64Histogram
	decompressionCounter metric.Int64Counter
	compressionErrors    metric.Int64Counter
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) ServiceOption {
	return func(s *Service) { s.tracer = t }
}

// WithMeter overrides the global meter.
func WithMeter(m metric.Meter) ServiceOption {
	return func(s *Service) { s.meter = m }
}

// Decompressed is the outcome of Service.Decompress.
type Decompressed struct {
	Text           string  `json:"text"`
	OriginalSize   int     `json:"originalSize"`
	CompressedSize int     `json:"compressedSize"`
	Ratio          float64 `json:"ratio"`
	// Lossless is true when side-channel mappings were supplied.
	Lossless bool `json:"lossless"`
}

// NewService creates a new compression service
func NewService(config Config, logger *logging.Logger, opts ...ServiceOption) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid compression config: %w", err)
	}
	if logger == nil {
		logger = logging.FromContext(context.Background())
	}

	s := &Service{
		engine: NewEngine(config.Params(), config.MaxInputLength),
		config: config,
		logger: logger.Named("compression"),
		tracer: otel.Tracer(tracerName),
		meter:  otel.Meter(meterName),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	return s, nil
}

// Engine returns the underlying pipeline.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Compress validates input and runs the pipeline. Empty input yields the
// zero result without error.
func (s *Service) Compress(ctx context.Context, text string, opts Options) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "compression.compress",
		trace.WithAttributes(
			attribute.String("file_type", string(opts.FileType)),
			attribute.String("domain", opts.Domain),
			attribute.Int("domain_patterns", len(opts.DomainPatterns)),
			attribute.Int("content_length", utf8.RuneCountInString(text)),
		),
	)
	defer span.End()

	start := time.Now()

	result, err := s.engine.Compress(text, opts)
	if err != nil {
		s.recordError(ctx, span, "compress", errorType(err), err)
		s.logger.Warn(ctx, "compression rejected", zap.Error(err))
		return nil, fmt.Errorf("compression failed: %w", err)
	}

	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(
		attribute.String("format", string(result.Format)),
		attribute.String("content_type", string(result.Insights.ContentType)),
	)
	s.compressionCounter.Add(ctx, 1, attrs)
	s.compressionTime.Record(ctx, elapsed, attrs)
	s.compressionRatio.Record(ctx, result.Ratio, attrs)

	span.SetAttributes(
		attribute.Float64("processing_time_s", elapsed),
		attribute.Float64("compression_ratio", result.Ratio),
		attribute.Int("original_size", result.OriginalSize),
		attribute.Int("compressed_size", result.CompressedSize),
		attribute.Bool("reversible", result.Reversible),
		attribute.String("format", string(result.Format)),
	)

	s.logger.Debug(ctx, "compressed text",
		zap.Int("original_size", result.OriginalSize),
		zap.Int("compressed_size", result.CompressedSize),
		zap.Float64("ratio", result.Ratio),
		zap.String("format", string(result.Format)),
		zap.Int("steps", len(result.Steps)),
		zap.Bool("reversible", result.Reversible),
	)
	if n := result.Insights.ReservedCollisions; n > 0 {
		s.logger.Warn(ctx, "input contains reserved code points", zap.Int("collisions", n))
	}

	return result, nil
}

// Decompress reverses a payload. Without mappings only run-length and the
// base dictionary are undone. Empty payloads return ErrEmptyInput.
func (s *Service) Decompress(ctx context.Context, payload string, m *Mappings) (*Decompressed, error) {
	ctx, span := s.tracer.Start(ctx, "compression.decompress",
		trace.WithAttributes(
			attribute.Int("payload_length", utf8.RuneCountInString(payload)),
			attribute.Bool("has_mappings", m != nil),
		),
	)
	defer span.End()

	if strings.TrimSpace(payload) == "" {
		s.recordError(ctx, span, "decompress", "empty_input", ErrEmptyInput)
		return nil, ErrEmptyInput
	}
	if err := s.engine.checkLength(payload); err != nil {
		s.recordError(ctx, span, "decompress", "validation", err)
		return nil, err
	}
	if m != nil && m.Version > MappingsVersion {
		err := NewValidationError("mappings.version", m.Version, fmt.Errorf("unsupported, newest known is %d", MappingsVersion))
		s.recordError(ctx, span, "decompress", "validation", err)
		return nil, err
	}

	text := Decode(payload, m)
	out := &Decompressed{
		Text:           text,
		OriginalSize:   utf8.RuneCountInString(text),
		CompressedSize: utf8.RuneCountInString(payload),
		Lossless:       m != nil,
	}
	out.Ratio = compressionRatio(out.OriginalSize, out.CompressedSize)

	s.decompressionCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool("lossless", out.Lossless)))
	span.SetAttributes(attribute.Int("original_size", out.OriginalSize))

	s.logger.Debug(ctx, "decompressed payload",
		zap.Int("compressed_size", out.CompressedSize),
		zap.Int("original_size", out.OriginalSize),
		zap.Bool("lossless", out.Lossless),
	)
	return out, nil
}

// BatchCompress compresses texts independently on the configured worker pool.
func (s *Service) BatchCompress(ctx context.Context, texts []string, opts Options) *BatchResult {
	ctx, span := s.tracer.Start(ctx, "compression.batch",
		trace.WithAttributes(attribute.Int("items", len(texts))),
	)
	defer span.End()

	res := s.engine.BatchCompress(ctx, texts, opts, s.config.BatchWorkers)
	for _, item := range res.Results {
		if item.Success {
			s.compressionCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("format", "batch")))
			s.compressionRatio.Record(ctx, item.Ratio, metric.WithAttributes(attribute.String("format", "batch")))
		} else {
			s.compressionErrors.Add(ctx, 1, metric.WithAttributes(
				attribute.String("operation", "batch"),
				attribute.String("error_type", "item_failed"),
			))
		}
	}

	failed := res.Failed()
	span.SetAttributes(
		attribute.Int("failed", failed),
		attribute.Int("total_original_size", res.TotalOriginalSize),
		attribute.Int("total_compressed_size", res.TotalCompressedSize),
		attribute.Float64("average_ratio", res.AverageRatio),
	)
	s.logger.Info(ctx, "batch compressed",
		zap.Int("items", len(texts)),
		zap.Int("failed", failed),
		zap.Float64("average_ratio", res.AverageRatio),
	)
	return res
}

func (s *Service) recordError(ctx context.Context, span trace.Span, op, errType string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.compressionErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", op),
			attribute.String("error_type", errType),
		),
	)
}

func errorType(err error) string {
	if IsValidationError(err) {
		return "validation"
	}
	return "compression_failed"
}

// initMetrics initializes OpenTelemetry metrics
func (s *Service) initMetrics() error {
	var err error

	s.compressionCounter, err = s.meter.Int64Counter(
		"compression.operations_total",
		metric.WithDescription("Total number of compression operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create compression counter: %w", err)
	}

	s.compressionTime, err = s.meter.Float64Histogram(
		"compression.duration_seconds",
		metric.WithDescription("Time spent on compression operations"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create compression time histogram: %w", err)
	}

	s.compressionRatio, err = s.meter.Float64Histogram(
		"compression.ratio_percent",
		metric.WithDescription("Size reduction achieved, in percent; negative means expansion"),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(-50, -10, 0, 10, 20, 30, 40, 50, 70, 90),
	)
	if err != nil {
		return fmt.Errorf("failed to create compression ratio histogram: %w", err)
	}

	s.decompressionCounter, err = s.meter.Int64Counter(
		"compression.decompressions_total",
		metric.WithDescription("Total number of decompression operations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create decompression counter: %w", err)
	}

	s.compressionErrors, err = s.meter.Int64Counter(
		"compression.errors_total",
		metric.WithDescription("Total number of compression errors"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create compression errors counter: %w", err)
	}

	return nil
}
