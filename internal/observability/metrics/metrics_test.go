package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestChatMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveTurn("completion")
	m.ObserveTurn("completion")
	m.ObserveLevel(5)
	m.ObserveOffTopic("spam", true)
	m.ObserveFormStep("service", "retry")
	m.ObserveLead("created")
	m.ObserveCompletion("openai", "ok", 0.4)
	m.ObserveTokens("openai", 120, 0)
	m.SetActiveSessions(4)
	m.SetActiveSessions(3)

	if got := testutil.ToFloat64(m.turnsTotal.WithLabelValues("completion")); got != 2 {
		t.Fatalf("expected 2 completion turns, got %v", got)
	}
	if got := testutil.ToFloat64(m.activeSessions); got != 3 {
		t.Fatalf("expected 3 active sessions, got %v", got)
	}
	if got := testutil.ToFloat64(m.levelTotal.WithLabelValues("5")); got != 1 {
		t.Fatalf("expected level 5 counted once, got %v", got)
	}
	if got := testutil.ToFloat64(m.offTopicTotal.WithLabelValues("spam", "true")); got != 1 {
		t.Fatalf("expected escalated spam rejection, got %v", got)
	}
	if got := testutil.ToFloat64(m.completionTokens.WithLabelValues("openai", "input")); got != 120 {
		t.Fatalf("expected 120 input tokens, got %v", got)
	}
	if got := testutil.CollectAndCount(m.completionTokens); got != 1 {
		t.Fatalf("expected zero output tokens to be skipped, got %d series", got)
	}
}

func TestChatMetricsDefaultRegistry(t *testing.T) {
	m := NewChatMetrics(nil)
	m.ObserveLead("failed")
	t.Cleanup(func() {
		prometheus.DefaultRegisterer.Unregister(m.turnsTotal)
		prometheus.DefaultRegisterer.Unregister(m.levelTotal)
		prometheus.DefaultRegisterer.Unregister(m.offTopicTotal)
		prometheus.DefaultRegisterer.Unregister(m.formsTotal)
		prometheus.DefaultRegisterer.Unregister(m.leadsTotal)
		prometheus.DefaultRegisterer.Unregister(m.completionLatency)
		prometheus.DefaultRegisterer.Unregister(m.completionTokens)
		prometheus.DefaultRegisterer.Unregister(m.activeSessions)
	})
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveTurn("redirect")
	m.ObserveLevel(1)
	m.ObserveOffTopic("trivia", false)
	m.ObserveFormStep("category", "completed")
	m.ObserveLead("created")
	m.ObserveCompletion("bedrock", "error", 1)
	m.ObserveTokens("bedrock", 1, 1)
	m.SetActiveSessions(2)
}
