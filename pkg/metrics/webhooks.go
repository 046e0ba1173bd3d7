package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records gateway notification processing outcomes.
type WebhookMetrics struct {
	events     *prometheus.CounterVec
	mismatches prometheus.Counter
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_events_total",
		Help: "Processed payment gateway notifications by outcome.",
	}, []string{"outcome"})
	mismatches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_webhook_signature_mismatch_total",
		Help: "Gateway notifications rejected for a bad integrity hash.",
	})
	reg.MustRegister(events, mismatches)
	return &WebhookMetrics{
		events:     events,
		mismatches: mismatches,
	}
}

// IncOutcome increments the event counter for the given outcome label.
func (w *WebhookMetrics) IncOutcome(outcome string) {
	if w == nil || w.events == nil {
		return
	}
	w.events.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncSignatureMismatch counts a rejected unauthenticated notification.
func (w *WebhookMetrics) IncSignatureMismatch() {
	if w == nil || w.mismatches == nil {
		return
	}
	w.mismatches.Inc()
}

func normalizeLabel(value string) string {
	label := strings.TrimSpace(strings.ToLower(value))
	if label == "" {
		return "unknown"
	}
	return strings.ReplaceAll(label, " ", "_")
}
