package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for graph construction and estimation.
type Metrics struct {
	config MetricsConfig

	// Graph metrics
	graphsBuilt    prometheus.Counter
	layersExpanded prometheus.Counter
	layerLiterals  prometheus.Histogram
	layerMutexes   *prometheus.HistogramVec
	graphsLeveled  prometheus.Counter

	// Estimate metrics
	estimates        *prometheus.CounterVec
	estimateDuration *prometheus.HistogramVec
	estimateLevels   *prometheus.HistogramVec
	cacheLookups     *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec

	// System metrics
	activeEstimates prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}
	sizeBuckets := prometheus.ExponentialBuckets(1, 2, 14)

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		graphsBuilt: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graphs_built_total",
				Help:      "Total number of planning graphs built",
			},
		),
		layersExpanded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "layers_expanded_total",
				Help:      "Total number of graph levels expanded",
			},
		),
		layerLiterals: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layer_literals",
				Help:      "Number of literals per expanded literal layer",
				Buckets:   sizeBuckets,
			},
		),
		layerMutexes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "layer_mutexes",
				Help:      "Number of mutex pairs per expanded layer",
				Buckets:   sizeBuckets,
			},
			[]string{"layer"},
		),
		graphsLeveled: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graphs_leveled_total",
				Help:      "Total number of graphs that reached their fixed point",
			},
		),

		estimates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "estimates_total",
				Help:      "Total number of heuristic estimates by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		estimateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "estimate_duration_seconds",
				Help:      "Duration of heuristic estimation in seconds",
				Buckets:   buckets,
			},
			[]string{"kind"},
		),
		estimateLevels: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "estimate_levels",
				Help:      "Number of graph levels built per estimate",
				Buckets:   prometheus.LinearBuckets(1, 1, 16),
			},
			[]string{"kind"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_lookups_total",
				Help:      "Total number of estimate cache lookups by result",
			},
			[]string{"result"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class", "code"},
		),

		activeEstimates: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_estimates",
				Help:      "Current number of estimates in progress",
			},
		),
	}

	registry.MustRegister(
		m.graphsBuilt,
		m.layersExpanded,
		m.layerLiterals,
		m.layerMutexes,
		m.graphsLeveled,
		m.estimates,
		m.estimateDuration,
		m.estimateLevels,
		m.cacheLookups,
		m.errorsByClass,
		m.activeEstimates,
	)

	return m, nil
}

// Registry returns the metrics registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Graph Metrics

// RecordGraphBuilt increments the counter for built graphs.
func (m *Metrics) RecordGraphBuilt() {
	if m.graphsBuilt == nil {
		return
	}
	m.graphsBuilt.Inc()
}

// RecordLayer records one expanded level.
func (m *Metrics) RecordLayer(literals, literalMutexes, actionMutexes int, leveled bool) {
	if m.layersExpanded == nil {
		return
	}
	m.layersExpanded.Inc()
	m.layerLiterals.Observe(float64(literals))
	m.layerMutexes.WithLabelValues("literal").Observe(float64(literalMutexes))
	m.layerMutexes.WithLabelValues("action").Observe(float64(actionMutexes))
	if leveled {
		m.graphsLeveled.Inc()
	}
}

// Estimate Metrics

// RecordEstimateStarted marks an estimate as in progress.
func (m *Metrics) RecordEstimateStarted() {
	if m.activeEstimates == nil {
		return
	}
	m.activeEstimates.Inc()
}

// RecordEstimate records a finished estimate with its outcome, duration and depth.
func (m *Metrics) RecordEstimate(kind, outcome string, duration time.Duration, levels int) {
	if m.estimates == nil {
		return
	}
	m.estimates.WithLabelValues(kind, outcome).Inc()
	m.estimateDuration.WithLabelValues(kind).Observe(duration.Seconds())
	m.estimateLevels.WithLabelValues(kind).Observe(float64(levels))
	m.activeEstimates.Dec()
}

// RecordCacheLookup records a cache hit or miss.
func (m *Metrics) RecordCacheLookup(hit bool) {
	if m.cacheLookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Error Metrics

// RecordError records an error by class and code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if m.errorsByClass == nil {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass, errorCode).Inc()
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ServeMetrics serves the metrics endpoint on addr until ctx is done.
// An empty addr uses the configured listen address.
func (m *Metrics) ServeMetrics(ctx context.Context, addr string) error {
	if addr == "" {
		addr = m.config.ListenAddress
	}
	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
