package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Go-routine-4595/iba-monitor/model"
)

const metricPrefix = "iba_"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	tickLatency      prometheus.Histogram
	samplesTotal     prometheus.Counter
	alarmsTotal      *prometheus.CounterVec
	expressionErrors *prometheus.CounterVec
	sourceErrors     *prometheus.CounterVec
	notifyDropped    prometheus.Counter
	gatewayFailures  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tickLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "tick_latency_seconds",
				Help:    "Pipeline tick latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		samplesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "samples_total",
				Help: "Total samples recorded",
			},
		),
		alarmsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarm_events_total",
				Help: "Total alarm events by severity",
			},
			[]string{"severity"},
		),
		expressionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "expression_errors_total",
				Help: "Total alarm expression evaluation failures by signal",
			},
			[]string{"signal"},
		),
		sourceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "source_errors_total",
				Help: "Total failed source reads by signal",
			},
			[]string{"signal"},
		),
		notifyDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_dropped_total",
				Help: "Alarm notifications dropped because the queue was full",
			},
		),
		gatewayFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "gateway_failures_total",
				Help: "Failed alarm deliveries by gateway",
			},
			[]string{"gateway"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.tickLatency,
		m.samplesTotal,
		m.alarmsTotal,
		m.expressionErrors,
		m.sourceErrors,
		m.notifyDropped,
		m.gatewayFailures,
	)
	return m
}

func (m *Metrics) ObserveTick(d time.Duration, samples int) {
	m.tickLatency.Observe(d.Seconds())
	m.samplesTotal.Add(float64(samples))
}

func (m *Metrics) AlarmRaised(severity model.Severity) {
	m.alarmsTotal.WithLabelValues(string(severity)).Inc()
}

func (m *Metrics) ExpressionError(signalID string) {
	m.expressionErrors.WithLabelValues(signalID).Inc()
}

func (m *Metrics) SourceError(signalID string) {
	m.sourceErrors.WithLabelValues(signalID).Inc()
}

func (m *Metrics) NotificationDropped() {
	m.notifyDropped.Inc()
}

func (m *Metrics) GatewayFailed(gateway string) {
	m.gatewayFailures.WithLabelValues(gateway).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
