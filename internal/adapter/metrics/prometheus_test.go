package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/rl1809/freezer-inventory/internal/core/domain"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.ObserveOperation("add", 3*time.Millisecond, nil)
	rec.ObserveOperation("add", time.Millisecond, nil)
	rec.ObserveOperation("add", time.Millisecond, &domain.ValidationError{Field: "item"})
	rec.ObserveOperation("consume", time.Millisecond, &domain.NotFoundError{Location: "-18", Item: "Lemon"})
	rec.SetEntryCount(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.operations.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.operations.WithLabelValues("add", "validation")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.operations.WithLabelValues("consume", "not_found")))
	assert.Equal(t, 4.0, testutil.ToFloat64(rec.entries))
	assert.Equal(t, 2, testutil.CollectAndCount(rec.durations))
}

func TestResult(t *testing.T) {
	assert.Equal(t, "ok", Result(nil))
	assert.Equal(t, "conflict", Result(domain.ErrConcurrencyConflict))
	assert.Equal(t, "persistence", Result(&domain.PersistenceError{Op: "save", Err: errors.New("x")}))
	assert.Equal(t, "error", Result(errors.New("boom")))
}
