// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records the counters the service cares about: request
// traffic, checkout outcomes, and recorded purchases.
type Collector struct {
	requests        *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	signIns         *prometheus.CounterVec
	checkoutStarted prometheus.Counter
	checkoutFailed  prometheus.Counter
	purchases       prometheus.Counter
	webhookEvents   *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lessonmarket_http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "status"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lessonmarket_http_request_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		signIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lessonmarket_sign_ins_total",
			Help: "Sign-in attempts by outcome",
		}, []string{"outcome"}),
		checkoutStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lessonmarket_checkout_sessions_total",
			Help: "Checkout sessions created",
		}),
		checkoutFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lessonmarket_checkout_failures_total",
			Help: "Checkout session creations that failed",
		}),
		purchases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lessonmarket_purchases_recorded_total",
			Help: "Purchases recorded after verified payment",
		}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lessonmarket_webhook_events_total",
			Help: "Stripe webhook events received by type",
		}, []string{"type"}),
	}

	reg.MustRegister(
		c.requests,
		c.requestLatency,
		c.signIns,
		c.checkoutStarted,
		c.checkoutFailed,
		c.purchases,
		c.webhookEvents,
	)

	return c
}

// RecordRequest records one served HTTP request.
func (c *Collector) RecordRequest(method string, status int, duration time.Duration) {
	c.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSignIn records a sign-in attempt. outcome is "ok" or "failed".
func (c *Collector) RecordSignIn(outcome string) {
	c.signIns.WithLabelValues(outcome).Inc()
}

// RecordCheckoutStarted records a successfully created checkout session.
func (c *Collector) RecordCheckoutStarted() {
	c.checkoutStarted.Inc()
}

// RecordCheckoutFailed records a checkout session creation that failed.
func (c *Collector) RecordCheckoutFailed() {
	c.checkoutFailed.Inc()
}

// RecordPurchase records a purchase written after payment verification.
func (c *Collector) RecordPurchase() {
	c.purchases.Inc()
}

// RecordWebhookEvent records a received webhook event by type.
func (c *Collector) RecordWebhookEvent(eventType string) {
	c.webhookEvents.WithLabelValues(eventType).Inc()
}

// Handler returns the HTTP handler for Prometheus scrapes.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
