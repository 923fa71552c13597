// Package metrics defines the Prometheus metric collectors used across the
// digest pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the pipeline.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	ScanRunsTotal     *prometheus.CounterVec
	ChangedFilesTotal *prometheus.CounterVec
	LinksExtracted    prometheus.Counter
	LinksRetained     prometheus.Counter

	WorkItemsPublished *prometheus.CounterVec
	SummariesWritten   *prometheus.CounterVec
	RejectedMessages   *prometheus.CounterVec

	DigestRunsTotal   *prometheus.CounterVec
	BucketEntriesRead *prometheus.HistogramVec
	LLMCallDuration   *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 120, 300},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		ScanRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scan_runs_total",
				Help: "Total scan runs by outcome (completed, failed, unauthorized).",
			},
			[]string{"status"},
		),
		ChangedFilesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "changed_files_total",
				Help: "Changed files discovered per scan, by classification (document, diff, skipped).",
			},
			[]string{"kind"},
		),
		LinksExtracted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "links_extracted_total",
				Help: "Candidate links extracted from bodies and patches, before filtering.",
			},
		),
		LinksRetained: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "links_retained_total",
				Help: "Links the classifier judged contentful.",
			},
		),
		WorkItemsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "work_items_published_total",
				Help: "Work items published to the queue by kind (note, diff, url, terminal).",
			},
			[]string{"kind"},
		),
		SummariesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "summaries_written_total",
				Help: "Worker summaries written into result buckets by kind.",
			},
			[]string{"kind"},
		),
		RejectedMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rejected_messages_total",
				Help: "Queue messages rejected before processing, by reason (signature, decode).",
			},
			[]string{"reason"},
		),
		DigestRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "digest_runs_total",
				Help: "Digest synthesis runs by outcome (completed, failed).",
			},
			[]string{"status"},
		),
		BucketEntriesRead: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bucket_entries_read",
				Help:    "Entries found in a result bucket at synthesis time.",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
			[]string{"bucket"},
		),
		LLMCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_call_duration_seconds",
				Help:    "Language-model call latency by operation (classify, summarize, digest).",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"operation"},
		),
	}

	prometheus.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.ScanRunsTotal,
		m.ChangedFilesTotal,
		m.LinksExtracted,
		m.LinksRetained,
		m.WorkItemsPublished,
		m.SummariesWritten,
		m.RejectedMessages,
		m.DigestRunsTotal,
		m.BucketEntriesRead,
		m.LLMCallDuration,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
