package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the roster API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	snapshotLatency *prometheus.HistogramVec
	snapshotWrite   prometheus.Observer
	snapshotLookups *prometheus.CounterVec
	persistenceJobs *prometheus.CounterVec
	rosterSize      *prometheus.GaugeVec
}

// NewMetricsService registers core Prometheus collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	snapshotLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roster_snapshot_read_seconds",
		Help:    "Latency of local snapshot reads",
		Buckets: prometheus.DefBuckets,
	}, []string{"collection"})

	snapshotWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roster_snapshot_write_seconds",
		Help:    "Latency of local snapshot writes",
		Buckets: prometheus.DefBuckets,
	})

	snapshotLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_snapshot_lookups_total",
		Help: "Snapshot lookups on hydrate by result",
	}, []string{"collection", "result"})

	persistenceJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_persistence_jobs_total",
		Help: "Persistence jobs handled by kind and outcome",
	}, []string{"kind", "outcome"})

	rosterSize := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "roster_records",
		Help: "Records currently held in memory",
	}, []string{"collection"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, snapshotLatency, snapshotWrite, snapshotLookups, persistenceJobs, rosterSize, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		snapshotLatency: snapshotLatency,
		snapshotWrite:   snapshotWrite,
		snapshotLookups: snapshotLookups,
		persistenceJobs: persistenceJobs,
		rosterSize:      rosterSize,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordSnapshotLookup records whether hydrate trusted the local snapshot of a collection.
func (m *MetricsService) RecordSnapshotLookup(collection string, hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.snapshotLatency.WithLabelValues(collection).Observe(duration.Seconds())
	m.snapshotLookups.WithLabelValues(collection, result).Inc()
}

// ObserveSnapshotWrite tracks the duration of snapshot writes.
func (m *MetricsService) ObserveSnapshotWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.snapshotWrite.Observe(duration.Seconds())
}

// RecordPersistenceJob counts a finished persistence job.
func (m *MetricsService) RecordPersistenceJob(kind string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.persistenceJobs.WithLabelValues(kind, outcome).Inc()
}

// SetRosterSize publishes the in-memory size of a collection.
func (m *MetricsService) SetRosterSize(collection string, n int) {
	if m == nil {
		return
	}
	m.rosterSize.WithLabelValues(collection).Set(float64(n))
}
