package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Transaction outcome labels
const (
	StatusApproved = "approved"
	StatusDeclined = "declined"
	StatusFailed   = "failed" // Transport error or unparseable response
)

var (
	// Bank transaction metrics
	bankTransactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bank_transactions_total",
		Help: "Total number of bank transactions by outcome",
	}, []string{
		"bank",             // posnet
		"transaction_type", // sale, preauthorization, postauthorization, refund, cancel
		"status",           // approved, declined, failed
		"response_code",    // bank respCode, empty when approved or failed
	})

	bankTransactionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "bank_transaction_duration_seconds",
		Help: "Round trip time of bank transactions",
		// Buckets: 100ms to 30s (typical acquiring bank latencies)
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"bank",
		"transaction_type",
		"status",
	})

	// Transport metrics
	bankRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bank_requests_in_flight",
		Help: "Number of HTTP requests to banks currently in flight",
	})

	bankRequestRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bank_request_retries_total",
		Help: "Total number of retried bank HTTP requests",
	})

	circuitBreakerState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bank_circuit_breaker_state",
		Help: "Bank circuit breaker state (0=closed, 1=open, 2=half-open)",
	})
)

// RecordBankTransaction records the outcome and latency of one bank transaction
func RecordBankTransaction(bank, transactionType, status, responseCode string, duration time.Duration) {
	if status != StatusDeclined {
		responseCode = ""
	}
	bankTransactionsTotal.WithLabelValues(bank, transactionType, status, responseCode).Inc()
	bankTransactionDuration.WithLabelValues(bank, transactionType, status).Observe(duration.Seconds())
}

// TrackBankRequest increments the in-flight gauge and returns a func that decrements it
func TrackBankRequest() func() {
	bankRequestsInFlight.Inc()
	return bankRequestsInFlight.Dec
}

// RecordBankRetry counts one retried bank request
func RecordBankRetry() {
	bankRequestRetries.Inc()
}

// SetCircuitBreakerState publishes the numeric circuit breaker state
func SetCircuitBreakerState(state int) {
	circuitBreakerState.Set(float64(state))
}
