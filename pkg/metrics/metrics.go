// Package metrics exposes Prometheus instrumentation for the import flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fiat_funding"

// ImportMetrics groups the collectors updated by preview and bulk import.
type ImportMetrics struct {
	PreviewRows    *prometheus.CounterVec
	PreviewErrors  *prometheus.CounterVec
	Imports        *prometheus.CounterVec
	ImportedRows   prometheus.Counter
	ImportDuration prometheus.Histogram
}

// NewImportMetrics creates the collectors and registers them with reg.
// A nil registerer leaves them unregistered.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	m := &ImportMetrics{
		PreviewRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "preview_rows_total",
			Help:      "Rows seen by preview, by outcome (kept, dropped, invalid).",
		}, []string{"outcome"}),
		PreviewErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "preview_errors_total",
			Help:      "Preview attempts refused, by reason.",
		}, []string{"reason"}),
		Imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "bulk_imports_total",
			Help:      "Bulk import attempts, by outcome (succeeded, rejected, failed).",
		}, []string{"outcome"}),
		ImportedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "imported_rows_total",
			Help:      "Records accepted by the backend.",
		}),
		ImportDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "bulk_import_duration_seconds",
			Help:      "Duration of the bulk import backend call.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.PreviewRows, m.PreviewErrors, m.Imports, m.ImportedRows, m.ImportDuration)
	}
	return m
}
