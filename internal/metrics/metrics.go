// Package metrics defines the Prometheus metrics exported by the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup results for RecordLookup.
const (
	LookupHit       = "hit"       // first lookup found a menu
	LookupRecovered = "recovered" // found after a refresh
	LookupMiss      = "miss"      // still empty after a refresh
	LookupError     = "error"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// Menu metrics
	MenuLookupsTotal *prometheus.CounterVec

	// Refresh metrics
	RefreshTotal           *prometheus.CounterVec
	RefreshDurationSeconds prometheus.Histogram

	// Outbound message metrics
	MessagesSentTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterActive  *prometheus.GaugeVec

	// Store size
	CacheSize *prometheus.GaugeVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "komida_webhook_duration_seconds",
				Help:    "Webhook event processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"event_type"}, // event_type: message, other
		),

		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "komida_webhook_requests_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // status: ignored, replied, fallback, failed
		),

		MenuLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "komida_menu_lookups_total",
				Help: "Total number of menu lookups by result",
			},
			[]string{"result"}, // result: hit, recovered, miss, error
		),

		RefreshTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "komida_refresh_total",
				Help: "Total number of menu data refreshes by status",
			},
			[]string{"status"}, // status: updated, unchanged, error, shared
		),

		RefreshDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "komida_refresh_duration_seconds",
				Help:    "Menu data refresh duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 45},
			},
		),

		MessagesSentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "komida_messages_sent_total",
				Help: "Total number of outbound messages by kind and status",
			},
			[]string{"kind", "status"}, // kind: reply, push; status: success, error
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "komida_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"}, // limiter_type: chat, global
		),

		RateLimiterActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "komida_rate_limiter_active",
				Help: "Number of tracked keys per keyed rate limiter",
			},
			[]string{"limiter_type"},
		),

		CacheSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "komida_cache_size",
				Help: "Number of stored menu items and days",
			},
			[]string{"kind"}, // kind: items, days_ahead
		),
	}
}

// RecordWebhook records a processed webhook event
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordLookup records the outcome of a menu lookup
func (m *Metrics) RecordLookup(result string) {
	m.MenuLookupsTotal.WithLabelValues(result).Inc()
}

// RecordRefresh records a refresh attempt
func (m *Metrics) RecordRefresh(status string, duration float64) {
	m.RefreshTotal.WithLabelValues(status).Inc()
	m.RefreshDurationSeconds.Observe(duration)
}

// RecordRefreshShared records a caller that joined an in-flight refresh.
func (m *Metrics) RecordRefreshShared() {
	m.RefreshTotal.WithLabelValues("shared").Inc()
}

// RecordMessageSent records an outbound reply or push
func (m *Metrics) RecordMessageSent(kind, status string) {
	m.MessagesSentTotal.WithLabelValues(kind, status).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// SetRateLimiterActive sets the number of tracked limiter keys
func (m *Metrics) SetRateLimiterActive(limiterType string, count int) {
	m.RateLimiterActive.WithLabelValues(limiterType).Set(float64(count))
}

// SetCacheSize sets the store size gauge
func (m *Metrics) SetCacheSize(kind string, size int) {
	m.CacheSize.WithLabelValues(kind).Set(float64(size))
}
