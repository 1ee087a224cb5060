package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rl1809/freezer-inventory/internal/core/domain"
)

// PrometheusRecorder exports InventoryService outcomes.
type PrometheusRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	entries    prometheus.Gauge
}

func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventory",
			Name:      "operations_total",
			Help:      "Inventory operations by result.",
		}, []string{"op", "result"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "inventory",
			Name:      "operation_duration_seconds",
			Help:      "Time spent in inventory operations, including the store write.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		entries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "inventory",
			Name:      "ledger_entries",
			Help:      "Rows currently held in the ledger.",
		}),
	}
	reg.MustRegister(r.operations, r.durations, r.entries)
	return r
}

func (r *PrometheusRecorder) ObserveOperation(op string, duration time.Duration, err error) {
	r.operations.WithLabelValues(op, Result(err)).Inc()
	r.durations.WithLabelValues(op).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) SetEntryCount(n int) {
	r.entries.Set(float64(n))
}

// Result maps an operation error to a low-cardinality label value.
func Result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "conflict"
	case errors.Is(err, domain.ErrPersistence):
		return "persistence"
	default:
		return "error"
	}
}
