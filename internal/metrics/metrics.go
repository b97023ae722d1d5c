package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "svgconvert"

// Conversion sources and results used as label values.
const (
	SourceUpload = "upload"
	SourceURL    = "url"

	ResultSuccess  = "success"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Metrics holds every collector the service exports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requests           *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	conversions        *prometheus.CounterVec
	conversionDuration prometheus.Histogram
	sweeps             *prometheus.CounterVec
	sweptFiles         *prometheus.CounterVec
	sweepFailures      prometheus.Counter
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests by method, route pattern and status.",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by method and route pattern.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		conversions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "conversions_total",
				Help:      "Conversion requests by source (upload, url) and result.",
			},
			[]string{"source", "result"},
		),
		conversionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "converter_duration_seconds",
				Help:      "Wall time of external converter invocations.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		sweeps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweeps_total",
				Help:      "Retention sweep runs by result (ok, failed).",
			},
			[]string{"result"},
		),
		sweptFiles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "swept_files_total",
				Help:      "Files deleted by the retention sweeper by directory role.",
			},
			[]string{"role"},
		),
		sweepFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sweep_delete_failures_total",
				Help:      "Deletions attempted by the sweeper that failed.",
			},
		),
	}

	for _, collector := range []prometheus.Collector{
		m.requests, m.requestDuration, m.conversions, m.conversionDuration,
		m.sweeps, m.sweptFiles, m.sweepFailures,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Handler exposes the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method string, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) ObserveConversion(source string, result string) {
	if m == nil {
		return
	}
	m.conversions.WithLabelValues(source, result).Inc()
}

func (m *Metrics) ObserveConverter(duration time.Duration) {
	if m == nil {
		return
	}
	m.conversionDuration.Observe(duration.Seconds())
}

func (m *Metrics) ObserveSweep(ok bool, deletedIncoming int, deletedConverted int, failures int) {
	if m == nil {
		return
	}

	result := "ok"
	if !ok {
		result = "failed"
	}
	m.sweeps.WithLabelValues(result).Inc()
	m.sweptFiles.WithLabelValues("incoming").Add(float64(deletedIncoming))
	m.sweptFiles.WithLabelValues("converted").Add(float64(deletedConverted))
	m.sweepFailures.Add(float64(failures))
}
