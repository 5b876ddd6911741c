package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var DocumentsProcessed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "documents_processed_total",
		Help: "Documents processed, by pipeline mode and input file",
	},
	[]string{"mode", "file"},
)

var DocumentsFailed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "documents_failed_total",
		Help: "Documents skipped due to per-document processing failures",
	},
	[]string{"mode", "file"},
)

var DuplicateRate = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "duplicate_rate",
		Help: "Fraction of documents marked duplicate in the most recently finished file",
	},
	[]string{"file"},
)

var HashStoreSize = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "dedupstore_entries",
		Help: "Distinct bucket signatures currently held by the dedup store",
	},
)

var SuffixArrayBuildDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "suffix_array_build_duration_seconds",
		Help:    "Time to build a suffix array for one input file",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 16),
	},
	[]string{"file", "tokenized"},
)

// - Version information of this binary
var Version = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "version",
		Help: "Version information of this binary",
	},
	[]string{"started_at", "tag", "commit", "compiler", "goarch", "goos", "goamd64", "vcs", "vcs_revision", "vcs_time", "vcs_modified"},
)
