package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "audience"

const (
	SourceAPI       = "api"
	SourceSimulated = "simulated"
)

// Metrics holds the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	devicesAdded    prometheus.Counter
	devicesDeleted  prometheus.Counter
	deviceConflicts prometheus.Counter
	audienceAdded   *prometheus.CounterVec
	rejected        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		devicesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_added_total",
			Help:      "Devices registered",
		}),
		devicesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "devices_deleted_total",
			Help:      "Device delete requests served",
		}),
		deviceConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_conflicts_total",
			Help:      "Device registrations rejected because device_id already exists",
		}),
		audienceAdded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "audience_records_total",
				Help:      "Audience records stored by source",
			},
			[]string{"source"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_rejections_total",
				Help:      "Payloads rejected by the validation layer",
			},
			[]string{"entity", "reason"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpLatency,
		m.devicesAdded,
		m.devicesDeleted,
		m.deviceConflicts,
		m.audienceAdded,
		m.rejected,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(route, method string, code int, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(route, method).Observe(seconds)
}

func (m *Metrics) DeviceAdded() {
	if m != nil {
		m.devicesAdded.Inc()
	}
}

func (m *Metrics) DeviceDeleted() {
	if m != nil {
		m.devicesDeleted.Inc()
	}
}

func (m *Metrics) DeviceConflict() {
	if m != nil {
		m.deviceConflicts.Inc()
	}
}

func (m *Metrics) AudienceAdded(source string) {
	if m != nil {
		m.audienceAdded.WithLabelValues(source).Inc()
	}
}

// Rejected counts a validation failure; reason is the error class ("missing_body", "invalid").
func (m *Metrics) Rejected(entity, reason string) {
	if m != nil {
		m.rejected.WithLabelValues(entity, reason).Inc()
	}
}
