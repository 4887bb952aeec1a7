package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/satyagyan/internal/checker"
	"github.com/nao1215/satyagyan/internal/model"
)

// Metrics holds the Prometheus metrics of the server.
type Metrics struct {
	checksTotal   *prometheus.CounterVec
	checkDuration prometheus.Histogram
	checkErrors   *prometheus.CounterVec
	cacheHits     prometheus.Counter

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// NewMetrics creates the metrics on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "satyagyan_checks_total",
				Help: "Total number of fact checks by verdict",
			},
			[]string{"verdict"},
		),
		checkDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "satyagyan_check_duration_seconds",
				Help:    "Duration of fact checks that ran the pipeline",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		checkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "satyagyan_check_errors_total",
				Help: "Total number of failed fact checks by pipeline stage",
			},
			[]string{"stage"},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "satyagyan_cache_hits_total",
				Help: "Total number of checks answered from history",
			},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "satyagyan_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "satyagyan_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.checksTotal,
		m.checkDuration,
		m.checkErrors,
		m.cacheHits,
		m.httpRequestsTotal,
		m.httpRequestDuration,
	)

	return m
}

// Handler returns the /metrics handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCheck records the outcome of a check. report is nil when the
// input was rejected before the pipeline ran.
func (m *Metrics) RecordCheck(report *model.FactCheckReport, err error) {
	if err != nil {
		stage := "input"
		var checkErr *checker.CheckError
		if errors.As(err, &checkErr) && checkErr.Stage != "" {
			stage = checkErr.Stage
		}
		m.checkErrors.WithLabelValues(stage).Inc()
	}
	if report == nil {
		return
	}

	m.checksTotal.WithLabelValues(string(report.Verdict)).Inc()
	if report.Cached {
		m.cacheHits.Inc()
		return
	}
	m.checkDuration.Observe(report.Duration.Seconds())
}

// Middleware counts requests by route template so that check IDs do not
// create new label values.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		m.httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
