package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type GatewayMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	uploadsTotal         *prometheus.CounterVec
	uploadBatchSize      *prometheus.HistogramVec
	uploadDuration       *prometheus.HistogramVec
	busyRejectionsTotal  *prometheus.CounterVec
	validationRejections *prometheus.CounterVec
	deletesTotal         *prometheus.CounterVec
	undoTotal            *prometheus.CounterVec
	sessionsLive         prometheus.Gauge
}

func NewGatewayMetrics(service string) *GatewayMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "intake",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	uploadsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "session",
			Name:      "uploads_total",
			Help:      "Total upload batches by outcome.",
		},
		[]string{"service", "outcome"},
	)
	uploadBatchSize := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "session",
			Name:      "upload_batch_size",
			Help:      "Distribution of files per upload batch.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service"},
	)
	uploadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "intake",
			Subsystem: "session",
			Name:      "upload_duration_seconds",
			Help:      "Upload round-trip duration in seconds by outcome.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "outcome"},
	)
	busyRejectionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "session",
			Name:      "busy_rejections_total",
			Help:      "Total uploads rejected because one was already in flight.",
		},
		[]string{"service"},
	)
	validationRejections := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "session",
			Name:      "validation_rejections_total",
			Help:      "Total batches rejected by the extension allow-list.",
		},
		[]string{"service"},
	)
	deletesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "session",
			Name:      "deletes_total",
			Help:      "Total file deletes by outcome.",
		},
		[]string{"service", "outcome"},
	)
	undoTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intake",
			Subsystem: "session",
			Name:      "undo_total",
			Help:      "Total undo calls by effect.",
		},
		[]string{"service", "effect"},
	)
	sessionsLive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "intake",
			Subsystem: "session",
			Name:      "live_sessions",
			Help:      "Number of live sessions in the registry.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		uploadsTotal,
		uploadBatchSize,
		uploadDuration,
		busyRejectionsTotal,
		validationRejections,
		deletesTotal,
		undoTotal,
		sessionsLive,
	)

	return &GatewayMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		uploadsTotal:         uploadsTotal,
		uploadBatchSize:      uploadBatchSize,
		uploadDuration:       uploadDuration,
		busyRejectionsTotal:  busyRejectionsTotal,
		validationRejections: validationRejections,
		deletesTotal:         deletesTotal,
		undoTotal:            undoTotal,
		sessionsLive:         sessionsLive,
	}
}

func (m *GatewayMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *GatewayMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &observedResponse{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath folds session and record ids out of the label set.
func normalizePath(path string) string {
	if !strings.HasPrefix(path, "/v1/sessions/") {
		return path
	}
	rest := strings.TrimPrefix(path, "/v1/sessions/")
	parts := strings.Split(rest, "/")
	switch {
	case len(parts) == 1:
		return "/v1/sessions/{session_id}"
	case len(parts) >= 3 && parts[1] == "files":
		if len(parts) == 4 && parts[3] == "content" {
			return "/v1/sessions/{session_id}/files/{record_id}/content"
		}
		return "/v1/sessions/{session_id}/files/{record_id}"
	default:
		return "/v1/sessions/{session_id}/" + strings.Join(parts[1:], "/")
	}
}

type observedResponse struct {
	http.ResponseWriter
	statusCode int
}

func (w *observedResponse) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
