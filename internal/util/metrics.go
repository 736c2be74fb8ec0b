package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_mutations_total",
		Help: "Cart mutations by operation",
	}, []string{"op"})

	CartStorageErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_storage_errors_total",
		Help: "Cart persistence failures by operation",
	}, []string{"op"})

	CartExternalChangesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_external_changes_total",
		Help: "Cart writes observed from another origin",
	})

	NavigationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "navigations_total",
		Help: "Page navigations by outcome",
	}, []string{"result"})

	NavigationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "navigation_duration_seconds",
		Help:    "Time spent in page handlers",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "active_sessions",
		Help: "Sessions currently held in memory",
	})

	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed at checkout",
	})

	OrdersConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_confirmed_total",
		Help: "Total number of orders confirmed after deposit payment",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of failed checkouts or orders",
	}, []string{"reason"})

	OrdersCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_cancelled_total",
		Help: "Total number of cancelled orders",
	})

	InvoicesIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "invoices_issued_total",
		Help: "Invoices issued by kind",
	}, []string{"kind"})

	PaymentAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_attempts_total",
		Help: "Total number of deposit payment attempts",
	})

	PaymentSuccessTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_success_total",
		Help: "Total number of successful deposit payments",
	})

	PaymentFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_failed_total",
		Help: "Total number of failed deposit payments",
	})

	PaymentProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_processing_latency_seconds",
		Help:    "Latency of mocked payment processing",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
