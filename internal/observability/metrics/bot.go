package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/paperless-bot/internal/core/domain"
)

// BotMetrics owns a private registry. All recorders are safe on a nil receiver
// so components can run without metrics in tests.
type BotMetrics struct {
	service  string
	registry *prometheus.Registry

	updatesTotal      *prometheus.CounterVec
	updateDuration    *prometheus.HistogramVec
	updatesInFlight   prometheus.Gauge
	backendTotal      *prometheus.CounterVec
	backendDuration   *prometheus.HistogramVec
	uploadOutcomes    *prometheus.CounterVec
	taskPollAttempts  prometheus.Histogram
	conversationState *prometheus.GaugeVec
	breakerOpen       *prometheus.GaugeVec

	httpRequestTotal    *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func NewBotMetrics(service string) *BotMetrics {
	registry := prometheus.NewRegistry()

	updatesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperless_bot",
			Subsystem: "chat",
			Name:      "updates_total",
			Help:      "Total handled chat updates by kind and status.",
		},
		[]string{"service", "kind", "status"},
	)
	updateDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperless_bot",
			Subsystem: "chat",
			Name:      "update_duration_seconds",
			Help:      "Chat update handling duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"service", "kind"},
	)
	updatesInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "paperless_bot",
			Subsystem: "chat",
			Name:      "updates_in_flight",
			Help:      "Number of chat updates being handled.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	backendTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperless_bot",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Total document backend requests by operation and status.",
		},
		[]string{"service", "operation", "status"},
	)
	backendDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperless_bot",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Document backend request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)
	uploadOutcomes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperless_bot",
			Subsystem: "upload",
			Name:      "outcomes_total",
			Help:      "Upload pipeline outcomes by task status.",
		},
		[]string{"service", "status"},
	)
	taskPollAttempts := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "paperless_bot",
			Subsystem: "upload",
			Name:      "task_poll_attempts",
			Help:      "Task status polls needed until a terminal state or timeout.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 30},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	conversationState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "paperless_bot",
			Subsystem: "conversation",
			Name:      "entries",
			Help:      "Per-chat conversation state entries held in memory.",
		},
		[]string{"service", "kind"},
	)
	breakerOpen := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "paperless_bot",
			Subsystem: "resilience",
			Name:      "breaker_open",
			Help:      "1 while the circuit breaker of an operation is open.",
		},
		[]string{"service", "dependency", "operation"},
	)
	httpRequestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paperless_bot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total health server requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpRequestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paperless_bot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Health server request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	registry.MustRegister(
		updatesTotal,
		updateDuration,
		updatesInFlight,
		backendTotal,
		backendDuration,
		uploadOutcomes,
		taskPollAttempts,
		conversationState,
		breakerOpen,
		httpRequestTotal,
		httpRequestDuration,
	)

	return &BotMetrics{
		service:             service,
		registry:            registry,
		updatesTotal:        updatesTotal,
		updateDuration:      updateDuration,
		updatesInFlight:     updatesInFlight,
		backendTotal:        backendTotal,
		backendDuration:     backendDuration,
		uploadOutcomes:      uploadOutcomes,
		taskPollAttempts:    taskPollAttempts,
		conversationState:   conversationState,
		breakerOpen:         breakerOpen,
		httpRequestTotal:    httpRequestTotal,
		httpRequestDuration: httpRequestDuration,
	}
}

func (m *BotMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *BotMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *BotMetrics) StartUpdate() {
	if m == nil {
		return
	}
	m.updatesInFlight.Inc()
}

func (m *BotMetrics) FinishUpdate(kind string, duration time.Duration, failed bool) {
	if m == nil {
		return
	}
	m.updatesInFlight.Dec()

	status := "ok"
	if failed {
		status = "error"
	}
	m.updatesTotal.WithLabelValues(m.service, kind, status).Inc()
	m.updateDuration.WithLabelValues(m.service, kind).Observe(duration.Seconds())
}

func (m *BotMetrics) RecordBackendRequest(operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	switch {
	case err == nil:
	case domain.IsKind(err, domain.ErrNotFound):
		status = "not_found"
	case domain.IsKind(err, domain.ErrUnauthorized):
		status = "unauthorized"
	case domain.IsKind(err, domain.ErrBackend):
		status = "backend_error"
	default:
		status = "transport_error"
	}
	m.backendTotal.WithLabelValues(m.service, operation, status).Inc()
	m.backendDuration.WithLabelValues(m.service, operation).Observe(duration.Seconds())
}

func (m *BotMetrics) RecordUploadOutcome(status domain.TaskStatus) {
	if m == nil {
		return
	}
	if status == "" {
		status = "error"
	}
	m.uploadOutcomes.WithLabelValues(m.service, string(status)).Inc()
}

func (m *BotMetrics) ObserveTaskPolls(attempts int) {
	if m == nil || attempts <= 0 {
		return
	}
	m.taskPollAttempts.Observe(float64(attempts))
}

func (m *BotMetrics) SetConversationStats(stats domain.ConversationStats) {
	if m == nil {
		return
	}
	m.conversationState.WithLabelValues(m.service, "pending_upload").Set(float64(stats.PendingUploads))
	m.conversationState.WithLabelValues(m.service, "pending_create").Set(float64(stats.PendingCreates))
	m.conversationState.WithLabelValues(m.service, "search_query").Set(float64(stats.SearchQueries))
}

func (m *BotMetrics) SetBreakerOpen(dependency, operation string, open bool) {
	if m == nil {
		return
	}
	value := 0.0
	if open {
		value = 1
	}
	m.breakerOpen.WithLabelValues(m.service, dependency, operation).Set(value)
}
