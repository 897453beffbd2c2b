package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// promMetrics are the compression counters scraped from /metrics.
type promMetrics struct {
	operations *prometheus.CounterVec
	ratio      prometheus.Histogram
	saved      prometheus.Counter
}

// newPrometheusRegistry returns a registry with the Go runtime and process
// collectors installed.
func newPrometheusRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newPromMetrics(reg prometheus.Registerer) *promMetrics {
	f := promauto.With(reg)
	return &promMetrics{
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "textpack",
			Name:      "operations_total",
			Help:      "Compression API operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ratio: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "textpack",
			Name:      "compression_ratio_percent",
			Help:      "Space saved per successful compression, in percent.",
			Buckets:   []float64{0, 5, 10, 20, 30, 40, 50, 60, 70, 80, 90},
		}),
		saved: f.NewCounter(prometheus.CounterOpts{
			Namespace: "textpack",
			Name:      "characters_saved_total",
			Help:      "Characters removed by compression across all requests.",
		}),
	}
}

func (m *promMetrics) observe(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(operation, outcome).Inc()
}

func (m *promMetrics) observeResult(originalSize, compressedSize int, ratio float64) {
	m.ratio.Observe(ratio)
	if saved := originalSize - compressedSize; saved > 0 {
		m.saved.Add(float64(saved))
	}
}
