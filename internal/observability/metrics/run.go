package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/esxtool/esxtool/internal/errors"
)

// RunMetrics contains the Prometheus metrics of a single esxtool run.
type RunMetrics struct {
	Operations  *prometheus.CounterVec
	Durations   *prometheus.HistogramVec
	Errors      *prometheus.CounterVec
	Records     *prometheus.GaugeVec
	BundleBytes prometheus.Gauge
	Pseudonyms  *prometheus.CounterVec
	Rewrites    prometheus.Counter
	Issues      *prometheus.CounterVec
	Rows        *prometheus.CounterVec
	LastRun     prometheus.Gauge
}

// NewRunMetrics creates the run metrics and registers them with registry.
func NewRunMetrics(registry *prometheus.Registry) (*RunMetrics, error) {
	m := &RunMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register run metrics: %w", err)
	}
	return m, nil
}

func (m *RunMetrics) initMetrics() {
	m.Operations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "operations_total",
		Help:      "Pipeline operations by outcome",
	}, []string{"operation", "status"})

	m.Durations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "operation_duration_seconds",
		Help:      "Duration of pipeline operations",
		Buckets:   prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
	}, []string{"operation"})

	m.Errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "errors_total",
		Help:      "Fatal errors by operation and category",
	}, []string{"operation", "category"})

	m.Records = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "bundle_records",
		Help:      "Records per loaded bundle document",
	}, []string{"document"})

	m.BundleBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "bundle_bytes",
		Help:      "Uncompressed size of the input bundle",
	})

	m.Pseudonyms = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "pseudonyms_total",
		Help:      "Distinct pseudonyms generated",
	}, []string{"kind"})

	m.Rewrites = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "field_rewrites_total",
		Help:      "Fields rewritten with a pseudonym",
	})

	m.Issues = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "issues_total",
		Help:      "Non-fatal per-record issues by category",
	}, []string{"category"})

	m.Rows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rows_written_total",
		Help:      "Rows written to tabular outputs",
	}, []string{"table"})

	m.LastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Time the run finished",
	})
}

// RecordOperation implements Recorder.
func (m *RunMetrics) RecordOperation(operation, status string) {
	m.Operations.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *RunMetrics) RecordDuration(operation string, seconds float64) {
	m.Durations.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *RunMetrics) RecordError(operation, errorType string) {
	m.Errors.WithLabelValues(operation, errorType).Inc()
}

// SetRecordCounts sets the per-document record gauges.
func (m *RunMetrics) SetRecordCounts(counts map[string]int) {
	for doc, n := range counts {
		m.Records.WithLabelValues(doc).Set(float64(n))
	}
}

// SetBundleSize records the uncompressed bundle size.
func (m *RunMetrics) SetBundleSize(bytes int64) {
	m.BundleBytes.Set(float64(bytes))
}

// AddPseudonyms adds generated pseudonyms of a kind.
func (m *RunMetrics) AddPseudonyms(kind string, n int64) {
	m.Pseudonyms.WithLabelValues(kind).Add(float64(n))
}

// AddRewrites adds rewritten fields.
func (m *RunMetrics) AddRewrites(n int64) {
	m.Rewrites.Add(float64(n))
}

// ObserveIssues adds every collected issue to the per-category counter.
func (m *RunMetrics) ObserveIssues(issues *errors.Issues) {
	if issues == nil {
		return
	}
	for category, n := range issues.Summary() {
		m.Issues.WithLabelValues(string(category)).Add(float64(n))
	}
}

// AddRows adds rows written to a table.
func (m *RunMetrics) AddRows(table string, n int) {
	m.Rows.WithLabelValues(table).Add(float64(n))
}

// MarkFinished stamps the end of the run.
func (m *RunMetrics) MarkFinished() {
	m.LastRun.SetToCurrentTime()
}

// Collect implements the prometheus.Collector interface.
func (m *RunMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Operations.Collect(ch)
	m.Durations.Collect(ch)
	m.Errors.Collect(ch)
	m.Records.Collect(ch)
	ch <- m.BundleBytes
	m.Pseudonyms.Collect(ch)
	ch <- m.Rewrites
	m.Issues.Collect(ch)
	m.Rows.Collect(ch)
	ch <- m.LastRun
}

// Describe implements the prometheus.Collector interface.
func (m *RunMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Operations.Describe(ch)
	m.Durations.Describe(ch)
	m.Errors.Describe(ch)
	m.Records.Describe(ch)
	ch <- m.BundleBytes.Desc()
	m.Pseudonyms.Describe(ch)
	ch <- m.Rewrites.Desc()
	m.Issues.Describe(ch)
	m.Rows.Describe(ch)
	ch <- m.LastRun.Desc()
}
