package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ChatMetrics exposes counters/histograms for the sales agent.
type ChatMetrics struct {
	turnsTotal        *prometheus.CounterVec
	levelTotal        *prometheus.CounterVec
	offTopicTotal     *prometheus.CounterVec
	formsTotal        *prometheus.CounterVec
	leadsTotal        *prometheus.CounterVec
	completionLatency *prometheus.HistogramVec
	completionTokens  *prometheus.CounterVec
	activeSessions    prometheus.Gauge
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizsite",
			Subsystem: "agent",
			Name:      "turns_total",
			Help:      "Conversation turns by the route that answered them",
		}, []string{"route"}),
		levelTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizsite",
			Subsystem: "agent",
			Name:      "level_total",
			Help:      "Conversational turns by inferred level",
		}, []string{"level"}),
		offTopicTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizsite",
			Subsystem: "agent",
			Name:      "off_topic_total",
			Help:      "Messages rejected as off-topic",
		}, []string{"category", "escalated"}),
		formsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizsite",
			Subsystem: "agent",
			Name:      "form_steps_total",
			Help:      "Form collection steps by form and outcome",
		}, []string{"form", "outcome"}),
		leadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizsite",
			Subsystem: "agent",
			Name:      "leads_total",
			Help:      "Lead capture results",
		}, []string{"status"}),
		completionLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bizsite",
			Subsystem: "completion",
			Name:      "latency_seconds",
			Help:      "Latency of completion calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 3, 5, 8, 10, 15, 20, 30},
		}, []string{"provider", "status"}),
		completionTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bizsite",
			Subsystem: "completion",
			Name:      "tokens_total",
			Help:      "Tokens used by completion providers",
		}, []string{"provider", "type"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bizsite",
			Subsystem: "agent",
			Name:      "active_sessions",
			Help:      "Sessions held in memory after the last eviction pass",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.turnsTotal,
		m.levelTotal,
		m.offTopicTotal,
		m.formsTotal,
		m.leadsTotal,
		m.completionLatency,
		m.completionTokens,
		m.activeSessions,
	)
	return m
}

func (m *ChatMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

func (m *ChatMetrics) ObserveTurn(route string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(route).Inc()
}

func (m *ChatMetrics) ObserveLevel(level int) {
	if m == nil {
		return
	}
	m.levelTotal.WithLabelValues(strconv.Itoa(level)).Inc()
}

func (m *ChatMetrics) ObserveOffTopic(category string, escalated bool) {
	if m == nil {
		return
	}
	m.offTopicTotal.WithLabelValues(category, strconv.FormatBool(escalated)).Inc()
}

func (m *ChatMetrics) ObserveFormStep(form, outcome string) {
	if m == nil {
		return
	}
	m.formsTotal.WithLabelValues(form, outcome).Inc()
}

// ObserveLead records a lead capture result: created, failed, aborted, duplicate.
func (m *ChatMetrics) ObserveLead(status string) {
	if m == nil {
		return
	}
	m.leadsTotal.WithLabelValues(status).Inc()
}

func (m *ChatMetrics) ObserveCompletion(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.completionLatency.WithLabelValues(provider, status).Observe(seconds)
}

func (m *ChatMetrics) ObserveTokens(provider string, input, output int32) {
	if m == nil {
		return
	}
	if input > 0 {
		m.completionTokens.WithLabelValues(provider, "input").Add(float64(input))
	}
	if output > 0 {
		m.completionTokens.WithLabelValues(provider, "output").Add(float64(output))
	}
}
