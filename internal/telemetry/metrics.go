// Package telemetry exposes Prometheus metrics for the message pipeline.
package telemetry

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "twitchbot"

// Metrics holds the pipeline collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry prometheus.Gatherer

	messages  *prometheus.CounterVec // by channel
	triggers  *prometheus.CounterVec // by trigger
	responses *prometheus.CounterVec // by outcome: sent, deferred, dropped, failed
	errors    prometheus.Counter     // feature errors
	queue     prometheus.Gauge
	requests  *prometheus.CounterVec // http requests by route and code
}

// New creates the collectors and registers them on a fresh registry.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	return NewWithRegisterer(reg, reg)
}

// NewWithRegisterer registers the collectors on reg. gatherer backs Handler
// and may be nil when the caller serves metrics itself.
func NewWithRegisterer(reg prometheus.Registerer, gatherer prometheus.Gatherer) (*Metrics, error) {
	m := &Metrics{
		registry: gatherer,
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "messages_total",
			Help:      "Chat messages received by the processor",
		}, []string{"channel"}),
		triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "triggers_total",
			Help:      "Messages that carried a trigger with at least one feature",
		}, []string{"trigger"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "responses_total",
			Help:      "Feature responses by outcome",
		}, []string{"outcome"}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "feature_errors_total",
			Help:      "Errors reported by features",
		}),
		queue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "processor",
			Name:      "deferred_queue_depth",
			Help:      "Responses waiting in the deferred queue",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route and status code",
		}, []string{"route", "code"}),
	}

	for _, c := range []prometheus.Collector{m.messages, m.triggers, m.responses, m.errors, m.queue, m.requests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Outcomes recorded by RecordResponse.
const (
	OutcomeSent     = "sent"
	OutcomeDeferred = "deferred"
	OutcomeDropped  = "dropped"
	OutcomeFailed   = "failed"
)

// RecordMessage counts an inbound message.
func (m *Metrics) RecordMessage(channel string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(channel).Inc()
}

// RecordTrigger counts a dispatched trigger.
func (m *Metrics) RecordTrigger(trigger string) {
	if m == nil {
		return
	}
	m.triggers.WithLabelValues(trigger).Inc()
}

// RecordResponse counts a response outcome.
func (m *Metrics) RecordResponse(outcome string) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(outcome).Inc()
}

// RecordFeatureError counts an error reported through a response callback.
func (m *Metrics) RecordFeatureError() {
	if m == nil {
		return
	}
	m.errors.Inc()
}

// SetQueueDepth records the deferred queue length.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queue.Set(float64(n))
}

// RecordHTTPRequest counts a served request. route must come from a fixed
// set to keep label cardinality bounded.
func (m *Metrics) RecordHTTPRequest(route string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
