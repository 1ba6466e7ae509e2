package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "villastay"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	grpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC calls by full method and status code.",
		},
		[]string{"method", "code"},
	)

	refundQuotes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refund_quotes_total",
			Help:      "Cancellation quotes issued by refund percent.",
		},
		[]string{"percent"},
	)

	cancellations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancellations_total",
			Help:      "Cancellation confirmations by outcome.",
		},
		[]string{"outcome"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification delivery attempts by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	invoiceGrandTotal = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invoice_grand_total",
			Help:      "Grand total of rendered invoices in whole currency units.",
			Buckets:   prometheus.ExponentialBuckets(1000, 2, 12),
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, grpcRequests, refundQuotes, cancellations, notifications, invoiceGrandTotal)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncGRPC(method, code string) {
	grpcRequests.WithLabelValues(method, code).Inc()
}

func IncRefundQuote(percent int) {
	refundQuotes.WithLabelValues(strconv.Itoa(percent)).Inc()
}

// IncCancellation records a confirm attempt. Outcomes: confirmed, stale,
// expired, already_cancelled, error.
func IncCancellation(outcome string) {
	cancellations.WithLabelValues(outcome).Inc()
}

func IncNotification(channel, outcome string) {
	notifications.WithLabelValues(channel, outcome).Inc()
}

func ObserveInvoice(grandTotal int64) {
	invoiceGrandTotal.Observe(float64(grandTotal))
}
