// Package metrics exposes Prometheus collectors for the reranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	MetricReranksTotal             = "rerankd_reranks_total"
	MetricRerankDuration           = "rerankd_rerank_duration_seconds"
	MetricResultsResolvedTotal     = "rerankd_results_resolved_total"
	MetricFeedbackSubmissionsTotal = "rerankd_feedback_submissions_total"
	MetricProvenanceFailuresTotal  = "rerankd_provenance_failures_total"
	MetricStoreRetriesTotal        = "rerankd_store_retries_total"
	MetricExportsTotal             = "rerankd_exports_total"
)

// Label values.
const (
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
	OutcomeRecorded = "recorded"
	OutcomeNoSearch = "no_search"

	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records
// nothing, which keeps tests and one-shot CLI commands free of registries.
type Metrics struct {
	reranksTotal        *prometheus.CounterVec
	rerankDuration      prometheus.Histogram
	resultsResolved     *prometheus.CounterVec
	feedbackSubmissions *prometheus.CounterVec
	provenanceFailures  prometheus.Counter
	storeRetries        prometheus.Counter
	exportsTotal        *prometheus.CounterVec
}

// New creates unregistered collectors; call Register to expose them.
func New() *Metrics {
	return &Metrics{
		reranksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricReranksTotal,
				Help: "Total number of rerank requests by whether feedback was applied",
			},
			[]string{"use_feedback"},
		),
		rerankDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRerankDuration,
				Help:    "Histogram of rerank duration in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
			},
		),
		resultsResolved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricResultsResolvedTotal,
				Help: "Total number of result identity resolutions by outcome",
			},
			[]string{"outcome"},
		),
		feedbackSubmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedbackSubmissionsTotal,
				Help: "Total number of feedback submissions by outcome",
			},
			[]string{"outcome"},
		),
		provenanceFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricProvenanceFailuresTotal,
				Help: "Total number of reranks whose provenance could not be recorded",
			},
		),
		storeRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricStoreRetriesTotal,
				Help: "Total number of transactions replayed after a transient store failure",
			},
		),
		exportsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricExportsTotal,
				Help: "Total number of feedback history exports by status",
			},
			[]string{"status"},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.reranksTotal,
		m.rerankDuration,
		m.resultsResolved,
		m.feedbackSubmissions,
		m.provenanceFailures,
		m.storeRetries,
		m.exportsTotal,
	}
}

func (m *Metrics) ObserveRerank(useFeedback bool, seconds float64) {
	if m == nil {
		return
	}
	label := "false"
	if useFeedback {
		label = "true"
	}
	m.reranksTotal.WithLabelValues(label).Inc()
	m.rerankDuration.Observe(seconds)
}

func (m *Metrics) IncResultsResolved(created bool) {
	if m == nil {
		return
	}
	outcome := OutcomeExisting
	if created {
		outcome = OutcomeCreated
	}
	m.resultsResolved.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncFeedbackSubmissions(outcome string) {
	if m == nil {
		return
	}
	m.feedbackSubmissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncProvenanceFailures() {
	if m == nil {
		return
	}
	m.provenanceFailures.Inc()
}

func (m *Metrics) IncStoreRetries() {
	if m == nil {
		return
	}
	m.storeRetries.Inc()
}

func (m *Metrics) IncExports(status string) {
	if m == nil {
		return
	}
	m.exportsTotal.WithLabelValues(status).Inc()
}
