package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline metrics, registered on the default registry and exposed by the
// promhttp handler each binary mounts.
var (
	bookingsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_processed_total",
		Help: "Booking outcomes published, by status",
	}, []string{"status"})

	duplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_duplicates_dropped_total",
		Help: "Booking events dropped by idempotency admission",
	})

	retryableFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "booking_retryable_failures_total",
		Help: "Booking events returned to the broker for redelivery",
	})

	discountFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discount_fallbacks_total",
		Help: "Discount calls answered by the local fallback",
	})

	wsConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_connections",
		Help: "Live websocket connections on this instance",
	})

	wsDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_deliveries_total",
		Help: "Websocket message deliveries, by result",
	}, []string{"result"})
)

// BookingProcessed records a published outcome.
func BookingProcessed(status string) {
	bookingsProcessed.WithLabelValues(status).Inc()
}

// DuplicateDropped records an admission denial.
func DuplicateDropped() {
	duplicatesDropped.Inc()
}

// RetryableFailure records a message handed back for redelivery.
func RetryableFailure() {
	retryableFailures.Inc()
}

// DiscountFallback records a degraded discount response.
func DiscountFallback() {
	discountFallbacks.Inc()
}

// WSConnected / WSDisconnected track the live connection gauge.
func WSConnected()    { wsConnections.Inc() }
func WSDisconnected() { wsConnections.Dec() }

// WSDelivery records a websocket send attempt outcome.
func WSDelivery(ok bool) {
	if ok {
		wsDeliveries.WithLabelValues("sent").Inc()
	} else {
		wsDeliveries.WithLabelValues("failed").Inc()
	}
}
