package slackwire

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts routing and history outcomes. A nil *Metrics records nothing.
type Metrics struct {
	dispatched *prometheus.CounterVec
	unroutable prometheus.Counter
	dropped    prometheus.Counter
	history    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slackwire",
			Name:      "messages_dispatched_total",
			Help:      "Messages delivered to the UI, by conversation kind.",
		}, []string{"target"}),
		unroutable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slackwire",
			Name:      "events_unroutable_total",
			Help:      "Events whose user/channel pair matched no conversation.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "slackwire",
			Name:      "messages_dropped_total",
			Help:      "Messages for closed channels dropped because open_chat is off.",
		}),
		history: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "slackwire",
			Name:      "history_fetches_total",
			Help:      "History calls, by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.dispatched, m.unroutable, m.dropped, m.history)
	}
	return m
}

func (m *Metrics) messageDispatched(target string) {
	if m != nil {
		m.dispatched.WithLabelValues(target).Inc()
	}
}

func (m *Metrics) eventUnroutable() {
	if m != nil {
		m.unroutable.Inc()
	}
}

func (m *Metrics) messageDropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) historyFetched(result string) {
	if m != nil {
		m.history.WithLabelValues(result).Inc()
	}
}
