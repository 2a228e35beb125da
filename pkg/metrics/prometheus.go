package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	AccessRequests    *prometheus.CounterVec
	CallbackDecisions *prometheus.CounterVec
	TelegramSends     *prometheus.CounterVec
	RefreshAttempts   *prometheus.CounterVec
	FeedEventsApplied prometheus.Counter
	WebhookLatency    prometheus.Histogram
	ErrorsCount       *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		AccessRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "access_requests_total",
			Help:      "The total number of access requests, by resulting state",
		}, []string{"state"}),
		CallbackDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callback_decisions_total",
			Help:      "The total number of Telegram callback decisions processed",
		}, []string{"action", "outcome"}),
		TelegramSends: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_sends_total",
			Help:      "The total number of Telegram API calls",
		}, []string{"method", "result"}),
		RefreshAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "day_refresh_attempts_total",
			Help:      "The total number of service-day refresh attempts",
		}, []string{"source", "result"}),
		FeedEventsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_events_applied_total",
			Help:      "The total number of change-feed events applied to day sessions",
		}),
		WebhookLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_processing_seconds",
			Help:      "Time taken to process Telegram webhook updates",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
