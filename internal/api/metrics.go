package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/talgya/hexpath/internal/path"
)

// Metrics holds the Prometheus collectors for one server. Each server owns
// its registry so tests can build several side by side.
type Metrics struct {
	registry *prometheus.Registry

	searchSeconds  prometheus.Histogram
	nodesExpanded  prometheus.Histogram
	searches       *prometheus.CounterVec
	generations    *prometheus.CounterVec
	sessionsActive prometheus.GaugeFunc
	reqDuration    *prometheus.HistogramVec
}

// NewMetrics creates and registers the collectors. activeSessions is
// sampled on every scrape.
func NewMetrics(activeSessions func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hexpath",
			Name:      "path_search_seconds",
			Help:      "Time spent in a single path search.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		nodesExpanded: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "hexpath",
			Name:      "path_nodes_expanded",
			Help:      "Nodes closed per path search.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hexpath",
			Name:      "path_searches_total",
			Help:      "Path searches by outcome.",
		}, []string{"result"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hexpath",
			Name:      "generate_total",
			Help:      "Terrain generation requests by proposal source.",
		}, []string{"source"}),
		sessionsActive: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "hexpath",
			Name:      "sessions_active",
			Help:      "Live editor sessions.",
		}, func() float64 { return float64(activeSessions()) }),
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hexpath",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, []string{"method", "route", "status"}),
	}

	m.registry.MustRegister(
		m.searchSeconds, m.nodesExpanded, m.searches,
		m.generations, m.sessionsActive, m.reqDuration,
		collectors.NewGoCollector(),
	)
	return m
}

// ObserveSearch records one path search.
func (m *Metrics) ObserveSearch(res path.Result, elapsed time.Duration) {
	m.searchSeconds.Observe(elapsed.Seconds())
	m.nodesExpanded.Observe(float64(res.Expanded))
	result := "none"
	if res.Reached {
		result = "found"
	}
	m.searches.WithLabelValues(result).Inc()
}

// ObserveGenerate counts one generate request by source.
func (m *Metrics) ObserveGenerate(source string) {
	m.generations.WithLabelValues(source).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// statusRecorder captures the response status for the latency histogram.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Instrument records request latency labelled by the matched route pattern.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.reqDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
