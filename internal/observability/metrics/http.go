package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	searchesTotal      *prometheus.CounterVec
	searchResults      *prometheus.HistogramVec
	searchNoMatchTotal *prometheus.CounterVec
	answerSourceTotal  *prometheus.CounterVec
	rerankOutcomeTotal *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	corpusControls     prometheus.Gauge
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stig",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stig",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stig",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	searchesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stig",
			Subsystem: "retrieval",
			Name:      "searches_total",
			Help:      "Total completed control searches.",
		},
		[]string{"service", "endpoint"},
	)
	searchResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stig",
			Subsystem: "retrieval",
			Name:      "results_returned",
			Help:      "Distribution of controls returned per search.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	searchNoMatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stig",
			Subsystem: "retrieval",
			Name:      "no_match_total",
			Help:      "Total searches that matched no controls.",
		},
		[]string{"service", "endpoint"},
	)
	answerSourceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stig",
			Subsystem: "answer",
			Name:      "source_total",
			Help:      "Total answers by source (generated, fallback, lookup).",
		},
		[]string{"service", "source"},
	)
	rerankOutcomeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stig",
			Subsystem: "answer",
			Name:      "rerank_outcome_total",
			Help:      "Total rerank attempts by outcome (applied, skipped).",
		},
		[]string{"service", "outcome"},
	)
	generationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "stig",
			Subsystem: "answer",
			Name:      "generation_duration_seconds",
			Help:      "Answer composition duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "source"},
	)
	corpusControls := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "stig",
			Subsystem: "corpus",
			Name:      "controls_loaded",
			Help:      "Number of controls in the active corpus.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		searchesTotal,
		searchResults,
		searchNoMatchTotal,
		answerSourceTotal,
		rerankOutcomeTotal,
		generationDuration,
		corpusControls,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		searchesTotal:      searchesTotal,
		searchResults:      searchResults,
		searchNoMatchTotal: searchNoMatchTotal,
		answerSourceTotal:  answerSourceTotal,
		rerankOutcomeTotal: rerankOutcomeTotal,
		generationDuration: generationDuration,
		corpusControls:     corpusControls,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
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

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/controls/"):
		return "/v1/controls/{control_id}"
	default:
		return path
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
