package metrics

import (
	"strconv"
	"sync"
	"time"

	"wardrobe/internal/events"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wardrobe"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		},
		[]string{"endpoint", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	grpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "gRPC calls by method and status code.",
		},
		[]string{"method", "code"},
	)

	lifecycleEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lifecycle_events_total",
			Help:      "Published booking and return lifecycle events.",
		},
		[]string{"event"},
	)

	overdueBookings = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "overdue_bookings",
			Help:      "Bookings still out past their end date at the last check.",
		},
	)

	ledgerTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_tasks_total",
			Help:      "Ledger sync task outcomes.",
		},
		[]string{"result"},
	)

	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		},
		[]string{"circuit"},
	)

	photoUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photo_uploads_total",
			Help:      "Stored photo uploads by backend and result.",
		},
		[]string{"backend", "result"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			grpcRequests,
			lifecycleEvents,
			overdueBookings,
			ledgerTasks,
			breakerState,
			photoUploads,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string, status int) {
	httpRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func ObserveHTTP(endpoint string, d time.Duration) {
	httpDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func IncGRPC(method, code string) {
	grpcRequests.WithLabelValues(method, code).Inc()
}

func SetOverdue(n int) {
	overdueBookings.Set(float64(n))
}

func IncLedgerTask(result string) {
	ledgerTasks.WithLabelValues(result).Inc()
}

// SetBreakerState records 0 for closed, 1 for open and 2 for half-open.
func SetBreakerState(circuit string, state int) {
	breakerState.WithLabelValues(circuit).Set(float64(state))
}

func IncPhotoUpload(backend string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	photoUploads.WithLabelValues(backend, result).Inc()
}

// Subscribe counts every lifecycle event published on bus.
func Subscribe(bus *events.EventBus) {
	if bus == nil {
		return
	}
	bus.SubscribeAll(func(event *events.Event) error {
		lifecycleEvents.WithLabelValues(event.Type).Inc()
		return nil
	})
}
