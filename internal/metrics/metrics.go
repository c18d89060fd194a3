package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledgerchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	ExpensesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerchat_expenses_created_total",
			Help: "Total expenses created",
		},
		[]string{"source"}, // "api", "chat" or "receipt"
	)

	ChatMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerchat_chat_messages_total",
			Help: "Total chat messages dispatched",
		},
		[]string{"intent"},
	)

	ReceiptsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerchat_receipts_processed_total",
			Help: "Total receipts processed by the worker",
		},
		[]string{"outcome"}, // "processed" or "failed"
	)

	ExpensesExported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerchat_expenses_exported_total",
			Help: "Total expenses exported to the spreadsheet",
		},
	)

	BudgetAlerts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledgerchat_budget_alerts_total",
			Help: "Total budget limit alerts raised",
		},
	)

	// AI provider metrics
	AICompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerchat_ai_completions_total",
			Help: "Total AI completions by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	AICompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ledgerchat_ai_completion_duration_seconds",
			Help:    "AI completion latency",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider"},
	)

	// Rate limit metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledgerchat_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)
)
