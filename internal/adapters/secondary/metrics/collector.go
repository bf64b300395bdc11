package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements PredictionMetrics using Prometheus
type Collector struct {
	predictions    *prometheus.CounterVec
	predictLatency prometheus.Histogram
	recordsDropped prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	modelInfo      *prometheus.GaugeVec
	registry       *prometheus.Registry
}

// NewCollector creates a collector on its own registry, together with the
// Go runtime and process collectors.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Collector{
		registry: reg,
		predictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictor_predictions_total",
				Help: "Total number of prediction requests by outcome",
			},
			[]string{"status", "error_code"},
		),
		predictLatency: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "predictor_prediction_duration_seconds",
				Help:    "Time spent validating input and evaluating the model",
				Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
			},
		),
		recordsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "predictor_prediction_log_dropped_total",
				Help: "Prediction log records dropped because the write buffer was full",
			},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predictor_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "predictor_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		modelInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "predictor_model_info",
				Help: "Loaded model artifact; value is always 1",
			},
			[]string{"name", "version", "kind"},
		),
	}
}

func (c *Collector) ObservePrediction(status, errorCode string, latency time.Duration) {
	c.predictions.WithLabelValues(status, errorCode).Inc()
	c.predictLatency.Observe(latency.Seconds())
}

func (c *Collector) RecordDropped() {
	c.recordsDropped.Inc()
}

func (c *Collector) ObserveRequest(method, route string, status int, latency time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(latency.Seconds())
}

func (c *Collector) SetModelInfo(name, version, kind string) {
	c.modelInfo.WithLabelValues(name, version, kind).Set(1)
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Gatherer exposes the registry for tests.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}
