package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the desk bot's Prometheus collectors.
type Metrics struct {
	CommandsProcessed    *prometheus.CounterVec
	ErrorsTotal          prometheus.Counter
	UpdateProcessingTime prometheus.Histogram
	DisputesResolved     *prometheus.CounterVec
}

// NewMetrics registers the collectors with the default registry, so it is
// called once per process.
func NewMetrics() *Metrics {
	return &Metrics{
		CommandsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wardrobe_desk_bot_commands_total",
			Help: "Desk bot commands by name",
		}, []string{"command"}),

		ErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wardrobe_desk_bot_errors_total",
			Help: "Desk bot update handlers that failed or panicked",
		}),

		UpdateProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wardrobe_desk_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),

		DisputesResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wardrobe_desk_bot_disputes_resolved_total",
			Help: "Disputes settled from the desk bot by resolution",
		}, []string{"resolution"}),
	}
}

func (b *Bot) countCommand(name string) {
	if b.metrics != nil {
		b.metrics.CommandsProcessed.WithLabelValues(name).Inc()
	}
}
