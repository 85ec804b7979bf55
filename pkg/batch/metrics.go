package batch

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/dfise"
)

// Metrics holds all Prometheus metrics for a batch run.
type Metrics struct {
	Documents        *prometheus.CounterVec
	SkippedChannels  prometheus.Counter
	TrailingLiterals prometheus.Counter
	Rows             prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tcad_extract_documents_total",
		Help: "Documents processed, by result",
	}, []string{"result"})

	skipped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tcad_extract_skipped_channels_total",
		Help: "Requested channels missing from a document",
	})

	trailing := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tcad_extract_trailing_literals_total",
		Help: "Literals discarded because they did not fill a row",
	})

	rows := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tcad_extract_rows",
		Help:    "Rows extracted per document",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	reg.MustRegister(documents, skipped, trailing, rows)

	return &Metrics{
		Documents:        documents,
		SkippedChannels:  skipped,
		TrailingLiterals: trailing,
		Rows:             rows,
	}
}

func (m *Metrics) observe(res Result) {
	if m == nil {
		return
	}
	if res.Err != nil {
		m.Documents.WithLabelValues("failed").Inc()
		return
	}
	m.Documents.WithLabelValues("ok").Inc()
	m.Rows.Observe(float64(res.Table.Rows))
	for _, w := range res.Table.Warnings {
		switch w.Kind {
		case dfise.WarnMissingChannel:
			m.SkippedChannels.Inc()
		case dfise.WarnTrailingLiterals:
			m.TrailingLiterals.Add(float64(w.Count))
		}
	}
}
