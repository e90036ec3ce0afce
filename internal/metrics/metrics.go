// Package metrics exposes run counters for Prometheus.
//
// Collectors are registered on a caller-supplied Registerer so tests can use
// a private registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gathernomics"

// Table outcomes.
const (
	OutcomeLoaded   = "loaded"
	OutcomeSkipped  = "skipped"
	OutcomeDisabled = "disabled"
	OutcomeNoFilter = "no_filter"
	OutcomeFailed   = "failed"
)

// Row outcomes.
const (
	RowEmitted  = "emitted"
	RowRejected = "rejected"
	RowUndated  = "undated"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	tables   *prometheus.CounterVec
	rows     *prometheus.CounterVec
	bytes    prometheus.Counter
	upserted prometheus.Counter
	archived prometheus.Counter
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		tables: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tables_total",
				Help:      "Tables processed, by outcome.",
			},
			[]string{"outcome"},
		),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rows_total",
				Help:      "Data rows read, by outcome.",
			},
			[]string{"table", "outcome"},
		),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "csv_bytes_total",
			Help:      "Bytes of data CSV consumed.",
		}),
		upserted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "factors_upserted_total",
			Help:      "Financial factors inserted or updated.",
		}),
		archived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_stored_total",
			Help:      "Acquired zips copied to object storage.",
		}),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "table_duration_seconds",
				Help:      "Time spent acquiring and normalizing one table.",
				Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"table"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests served by the metrics endpoint.",
			},
			[]string{"method", "path", "status"},
		),
	}

	for _, c := range []prometheus.Collector{m.tables, m.rows, m.bytes, m.upserted, m.archived, m.duration, m.requests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Table records the outcome of one table.
func (m *Metrics) Table(outcome string) {
	m.tables.WithLabelValues(outcome).Inc()
}

// Rows records per-table row counts.
func (m *Metrics) Rows(table string, emitted, rejected, undated, bytes int64) {
	m.rows.WithLabelValues(table, RowEmitted).Add(float64(emitted))
	m.rows.WithLabelValues(table, RowRejected).Add(float64(rejected))
	m.rows.WithLabelValues(table, RowUndated).Add(float64(undated))
	m.bytes.Add(float64(bytes))
}

// Upserted records n factors written.
func (m *Metrics) Upserted(n int) {
	m.upserted.Add(float64(n))
}

// Archived records one zip copied to object storage.
func (m *Metrics) Archived() {
	m.archived.Inc()
}

// ObserveTable records how long a table took, in seconds.
func (m *Metrics) ObserveTable(table string, seconds float64) {
	m.duration.WithLabelValues(table).Observe(seconds)
}
