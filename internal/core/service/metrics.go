package service

import "time"

// MetricsRecorder receives per-operation outcomes from InventoryService.
type MetricsRecorder interface {
	ObserveOperation(op string, duration time.Duration, err error)
	SetEntryCount(n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Duration, error) {}

func (noopMetrics) SetEntryCount(int) {}
