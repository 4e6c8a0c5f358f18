// Package metrics declares the Prometheus collectors the service exports on
// /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "travel_divider"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route pattern and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	ExpenseRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expense_validation_rejections_total",
		Help:      "Expense submissions rejected by validation, by reason.",
	}, []string{"reason"})

	ExpensesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "expenses_written_total",
		Help:      "Expenses created, updated or deleted.",
	}, []string{"op"})

	ReceiptBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "receipt_bytes_stored_total",
		Help:      "Bytes written to the receipt store.",
	})

	SettlementPayments = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "settlement_payments",
		Help:      "Number of payments in each computed settlement plan.",
		Buckets:   prometheus.LinearBuckets(0, 1, 11),
	})
)
