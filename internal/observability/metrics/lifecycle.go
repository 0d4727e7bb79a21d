package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics covers background processing, retention sweeps and the engine
// calls made on behalf of documents.
type LifecycleMetrics struct {
	service string

	processTotal    *prometheus.CounterVec
	processDuration *prometheus.HistogramVec
	processInFlight prometheus.Gauge

	sweepRemoved  *prometheus.CounterVec
	sweepFailed   *prometheus.CounterVec
	sweepErrors   *prometheus.CounterVec
	sweepDuration *prometheus.HistogramVec

	dedupTotal     *prometheus.CounterVec
	chunksTotal    *prometheus.CounterVec
	oversizedTotal *prometheus.CounterVec
	engineFailures *prometheus.CounterVec
	retriesTotal   *prometheus.CounterVec
	breakerState   *prometheus.GaugeVec
}

func NewLifecycleMetrics(registry prometheus.Registerer, service string) *LifecycleMetrics {
	m := &LifecycleMetrics{
		service: service,
		processTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processing",
			Name:      "documents_total",
			Help:      "Total processed documents by status.",
		}, []string{"service", "status"}),
		processDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "processing",
			Name:      "duration_seconds",
			Help:      "Document processing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "status"}),
		processInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "processing",
			Name:        "in_flight",
			Help:        "Number of in-flight document processing tasks.",
			ConstLabels: prometheus.Labels{"service": service},
		}),
		sweepRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "files_removed_total",
			Help:      "Files deleted by retention sweeps.",
		}, []string{"service", "sweep"}),
		sweepFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "files_failed_total",
			Help:      "Files retention sweeps failed to delete.",
		}, []string{"service", "sweep"}),
		sweepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "sweep_errors_total",
			Help:      "Sweeps that ended with an error.",
		}, []string{"service", "sweep"}),
		sweepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retention",
			Name:      "sweep_duration_seconds",
			Help:      "Retention sweep duration in seconds.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"service", "sweep"}),
		dedupTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "lookups_total",
			Help:      "Existence checks by cache result.",
		}, []string{"service", "result"}),
		chunksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chunker",
			Name:      "chunks_total",
			Help:      "Chunks produced by purpose.",
		}, []string{"service", "purpose"}),
		oversizedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chunker",
			Name:      "oversized_chunks_total",
			Help:      "Single-sentence chunks above the token budget.",
		}, []string{"service", "purpose"}),
		engineFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "failures_total",
			Help:      "Failed engine calls by purpose.",
		}, []string{"service", "purpose"}),
		retriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "retries_total",
			Help:      "Retried outbound operations.",
		}, []string{"service", "operation"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "circuit_open",
			Help:      "1 while the circuit breaker of an operation is open.",
		}, []string{"service", "operation"}),
	}

	registry.MustRegister(
		m.processTotal,
		m.processDuration,
		m.processInFlight,
		m.sweepRemoved,
		m.sweepFailed,
		m.sweepErrors,
		m.sweepDuration,
		m.dedupTotal,
		m.chunksTotal,
		m.oversizedTotal,
		m.engineFailures,
		m.retriesTotal,
		m.breakerState,
	)
	return m
}

// RegisterRegistrySize exposes the live document count through size.
func RegisterRegistrySize(registry prometheus.Registerer, service string, size func() int) {
	registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   namespace,
		Subsystem:   "registry",
		Name:        "documents",
		Help:        "Documents currently tracked by the registry.",
		ConstLabels: prometheus.Labels{"service": service},
	}, func() float64 { return float64(size()) }))
}

func (m *LifecycleMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *LifecycleMetrics) FinishDocument(duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.processTotal.WithLabelValues(m.service, status).Inc()
	m.processDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *LifecycleMetrics) RecordSweep(sweep string, removed, failed int, err error, elapsed time.Duration) {
	if removed > 0 {
		m.sweepRemoved.WithLabelValues(m.service, sweep).Add(float64(removed))
	}
	if failed > 0 {
		m.sweepFailed.WithLabelValues(m.service, sweep).Add(float64(failed))
	}
	if err != nil {
		m.sweepErrors.WithLabelValues(m.service, sweep).Inc()
	}
	m.sweepDuration.WithLabelValues(m.service, sweep).Observe(elapsed.Seconds())
}

func (m *LifecycleMetrics) RecordDedup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.dedupTotal.WithLabelValues(m.service, result).Inc()
}

func (m *LifecycleMetrics) RecordChunks(purpose string, chunks, oversized int) {
	m.chunksTotal.WithLabelValues(m.service, purpose).Add(float64(chunks))
	if oversized > 0 {
		m.oversizedTotal.WithLabelValues(m.service, purpose).Add(float64(oversized))
	}
}

func (m *LifecycleMetrics) RecordEngineFailure(purpose string) {
	m.engineFailures.WithLabelValues(m.service, purpose).Inc()
}

func (m *LifecycleMetrics) OnRetry(operation string, _ int) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *LifecycleMetrics) OnBreakerState(operation, state string) {
	open := 0.0
	if state == "open" {
		open = 1
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(open)
}
