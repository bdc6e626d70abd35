package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry of the bot. A nil
// *MetricsService is valid and records nothing.
type MetricsService struct {
	registry            *prometheus.Registry
	handler             http.Handler
	workflows           *prometheus.CounterVec
	translations        *prometheus.CounterVec
	translationDuration prometheus.Histogram
	requestDuration     *prometheus.HistogramVec
	mirrorErrors        prometheus.Counter
}

// NewMetricsService registers the bot's collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	workflows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbot_workflows_total",
		Help: "Event mutation workflows by flow and terminal outcome",
	}, []string{"flow", "outcome"})

	translations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eventbot_translations_total",
		Help: "Translation calls by result (translated or fallback)",
	}, []string{"result"})

	translationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "eventbot_translation_duration_seconds",
		Help:    "Latency of single translation calls",
		Buckets: prometheus.DefBuckets,
	})

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	mirrorErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eventbot_calendar_mirror_errors_total",
		Help: "Failed CalDAV mirror writes",
	})

	registry.MustRegister(
		workflows,
		translations,
		translationDuration,
		requestDuration,
		mirrorErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsService{
		registry:            registry,
		handler:             promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		workflows:           workflows,
		translations:        translations,
		translationDuration: translationDuration,
		requestDuration:     requestDuration,
		mirrorErrors:        mirrorErrors,
	}
}

// Handler exposes the registry for scraping.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

// ObserveWorkflow counts a workflow reaching a terminal outcome.
func (m *MetricsService) ObserveWorkflow(flow, outcome string) {
	if m == nil {
		return
	}
	m.workflows.WithLabelValues(flow, outcome).Inc()
}

// ObserveTranslation records one translation call.
func (m *MetricsService) ObserveTranslation(translated bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "translated"
	if !translated {
		result = "fallback"
	}
	m.translations.WithLabelValues(result).Inc()
	m.translationDuration.Observe(d.Seconds())
}

// ObserveRequest records an HTTP request.
func (m *MetricsService) ObserveRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
}

// ObserveMirrorError counts a failed calendar mirror write.
func (m *MetricsService) ObserveMirrorError() {
	if m == nil {
		return
	}
	m.mirrorErrors.Inc()
}
