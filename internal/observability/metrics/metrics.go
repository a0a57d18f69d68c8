// Package metrics registers the prometheus collectors for the ingestion
// pipeline and the read API. Collectors are nil until Init runs, and every
// helper tolerates that, so packages can be exercised in tests without
// touching the global registry.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "garden_"

const (
	ResultSuccess = "success"
	ResultError   = "error"

	DropReasonDuplicate  = "duplicate"
	DropReasonValidation = "validation"
	DropReasonStore      = "store"
)

var (
	registerOnce sync.Once

	ingestMessages *prometheus.CounterVec
	ingestDropped  *prometheus.CounterVec
	storeWrite     prometheus.Histogram
	apiRequests    *prometheus.CounterVec
)

// Init registers all collectors with the default registry.
func Init() {
	registerOnce.Do(func() {
		ingestMessages = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_messages_total",
				Help: "Total ingested sensor messages by result",
			},
			[]string{"result"},
		)
		ingestDropped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_dropped_total",
				Help: "Total dropped sensor messages by reason",
			},
			[]string{"reason"},
		)
		storeWrite = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "store_write_seconds",
				Help:    "Reading append latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)
		apiRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "api_requests_total",
				Help: "Total API requests by endpoint and status code",
			},
			[]string{"endpoint", "code"},
		)

		prometheus.MustRegister(ingestMessages, ingestDropped, storeWrite, apiRequests)
	})
}

// ObserveIngest records one processed message and, on success, the append
// latency.
func ObserveIngest(result string, writeDuration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if ingestMessages != nil {
		ingestMessages.WithLabelValues(result).Inc()
	}
	if result == ResultSuccess && storeWrite != nil {
		storeWrite.Observe(writeDuration.Seconds())
	}
}

// IncIngestDropped counts a dropped message.
func IncIngestDropped(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestDropped != nil {
		ingestDropped.WithLabelValues(reason).Inc()
	}
}

// IncAPIRequest counts one served API request.
func IncAPIRequest(endpoint string, code int) {
	if apiRequests != nil {
		apiRequests.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
	}
}
