package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/phonematch-cli/internal/model"
)

// Metrics holds the crawl counters. It satisfies crawl.Observer.
type Metrics struct {
	registry *prometheus.Registry

	records    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	similarity prometheus.Histogram
	lastIndex  prometheus.Gauge
}

// NewMetrics registers the crawl metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		records: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "phonematch_records_total",
				Help: "Records processed by outcome status",
			},
			[]string{"status"},
		),
		duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "phonematch_record_duration_seconds",
				Help:    "Time spent searching and extracting one record, pacing excluded",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"status"},
		),
		similarity: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "phonematch_similarity_score",
			Help:    "Similarity score of the selected candidate",
			Buckets: []float64{0, 1, 2, 3, 5, 7, 10, 15, 20},
		}),
		lastIndex: f.NewGauge(prometheus.GaugeOpts{
			Name: "phonematch_last_index",
			Help: "Index of the most recently persisted record",
		}),
	}
}

// RecordProcessed counts one persisted outcome row.
func (m *Metrics) RecordProcessed(row model.OutcomeRow, elapsed time.Duration) {
	status := string(row.Status)
	m.records.WithLabelValues(status).Inc()
	m.duration.WithLabelValues(status).Observe(elapsed.Seconds())
	if row.Status == model.StatusMatched || row.Status == model.StatusNoPhoneFound ||
		row.Status == model.StatusMultipleResultsNoPhone {
		m.similarity.Observe(float64(row.SimilarityScore))
	}
	m.lastIndex.Set(float64(row.Index))
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
