package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tte_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tte_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	TradesResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tte_trades_resolved_total",
			Help: "Trades leaving pending, by outcome",
		},
		[]string{"outcome"},
	)

	AcceptConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tte_accept_conflicts_total",
			Help: "Accepts rejected because the slot changed hands",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tte_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tte_notifications_sent_total",
			Help: "Notifications delivered by the worker, by event type",
		},
		[]string{"event"},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tte_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)
