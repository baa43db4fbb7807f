package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records inbound webhook deliveries and their processing time.
type WebhookMetrics struct {
	deliveries *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	deliveries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Inbound webhook deliveries by source and outcome.",
	}, []string{"source", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_processing_seconds",
		Help:    "Webhook processing duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	reg.MustRegister(deliveries, duration)
	return &WebhookMetrics{
		deliveries: deliveries,
		duration:   duration,
	}
}

// IncDelivery counts one delivery for the named source with its outcome.
func (w *WebhookMetrics) IncDelivery(source, outcome string) {
	if w == nil || w.deliveries == nil {
		return
	}
	w.deliveries.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// ObserveDuration records the processing duration for the named source.
func (w *WebhookMetrics) ObserveDuration(source string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

// FulfillmentMetrics records shipment dispatch and refund automation outcomes.
type FulfillmentMetrics struct {
	dispatches *prometheus.CounterVec
	refunds    *prometheus.CounterVec
}

// NewFulfillmentMetrics registers the fulfillment metrics on the provided
// registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	dispatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shipment_dispatches_total",
		Help: "Shipment dispatch attempts by outcome.",
	}, []string{"outcome"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refund_initiations_total",
		Help: "Refund initiations by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(dispatches, refunds)
	return &FulfillmentMetrics{
		dispatches: dispatches,
		refunds:    refunds,
	}
}

// IncDispatch counts one shipment dispatch attempt with its outcome.
func (f *FulfillmentMetrics) IncDispatch(outcome string) {
	if f == nil || f.dispatches == nil {
		return
	}
	f.dispatches.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncRefund counts one refund initiation with its outcome.
func (f *FulfillmentMetrics) IncRefund(outcome string) {
	if f == nil || f.refunds == nil {
		return
	}
	f.refunds.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
