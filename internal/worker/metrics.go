package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects the worker loop's Prometheus instruments.
type Metrics struct {
	// TasksProcessed counts finished tasks by preset and outcome
	// (success or failed).
	TasksProcessed *prometheus.CounterVec

	// TaskDuration tracks end-to-end task execution time per preset.
	TaskDuration *prometheus.HistogramVec

	// IdlePolls counts queue scans that found no work.
	IdlePolls prometheus.Counter
}

// NewMetrics registers the worker instruments with the given registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		TasksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "genbridge",
			Subsystem: "worker",
			Name:      "tasks_processed_total",
			Help:      "Finished tasks by preset and outcome.",
		}, []string{"preset", "outcome"}),

		TaskDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "genbridge",
			Subsystem: "worker",
			Name:      "task_duration_seconds",
			Help:      "End-to-end task execution time.",
			// Generation tasks routinely run for minutes.
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"preset"}),

		IdlePolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "genbridge",
			Subsystem: "worker",
			Name:      "idle_polls_total",
			Help:      "Queue scans that found no queued task.",
		}),
	}
}

// Observe records one finished task.
func (m *Metrics) Observe(preset, outcome string, elapsed time.Duration) {
	m.TasksProcessed.WithLabelValues(preset, outcome).Inc()
	m.TaskDuration.WithLabelValues(preset).Observe(elapsed.Seconds())
}
