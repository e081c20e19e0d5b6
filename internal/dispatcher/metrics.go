package dispatcher

import "github.com/prometheus/client_golang/prometheus"

// Metrics is registered on a caller-supplied *prometheus.Registry, never
// the global default — this keeps the Dispatcher embeddable as a library
// and lets tests use isolated registries, the way client_golang is meant
// to be wired into non-main packages.
type Metrics struct {
	eventsTriggered     prometheus.Counter
	endpointRequests    prometheus.Counter
	handlerErrors       prometheus.Counter
	endpointRequestTime prometheus.Histogram
}

// NewMetrics constructs and registers the Dispatcher's counters/histogram
// on reg. Pass a fresh *prometheus.Registry per Dispatcher instance (or
// per test) to avoid duplicate-registration panics.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		eventsTriggered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "events_triggered_total",
			Help: "Total number of event triggers accepted by the dispatcher.",
		}),
		endpointRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "endpoint_requests_total",
			Help: "Total number of endpoint requests served by the dispatcher.",
		}),
		handlerErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "handler_errors_total",
			Help: "Total number of event handler invocations that errored or panicked, plus endpoint handler panics.",
		}),
		endpointRequestTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "endpoint_request_duration_seconds",
			Help:    "Latency of synchronous endpoint requests.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.eventsTriggered, m.endpointRequests, m.handlerErrors, m.endpointRequestTime)
	}
	return m
}

func (m *Metrics) observeEventTriggered() {
	if m == nil {
		return
	}
	m.eventsTriggered.Inc()
}

func (m *Metrics) observeEndpointRequest() {
	if m == nil {
		return
	}
	m.endpointRequests.Inc()
}

func (m *Metrics) observeHandlerError() {
	if m == nil {
		return
	}
	m.handlerErrors.Inc()
}

func (m *Metrics) observeEndpointRequestDuration(seconds float64) {
	if m == nil {
		return
	}
	m.endpointRequestTime.Observe(seconds)
}
