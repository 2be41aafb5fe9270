package jobs

import (
	"context"
	"fmt"
	"log"
)

// RetentionSweeper defines the interface for the erasure sweep
type RetentionSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// RetentionMetrics records erasures performed by the sweep
type RetentionMetrics interface {
	ObserveRetentionErasure(count int)
}

// RetentionWorker runs the retention erasure sweep on the worker schedule
type RetentionWorker struct {
	sweeper RetentionSweeper
	metrics RetentionMetrics
}

// NewRetentionWorker creates a new RetentionWorker instance
func NewRetentionWorker(sweeper RetentionSweeper, metrics RetentionMetrics) *RetentionWorker {
	return &RetentionWorker{
		sweeper: sweeper,
		metrics: metrics,
	}
}

// Run executes one sweep. Implements the Task interface.
func (w *RetentionWorker) Run(ctx context.Context) error {
	erased, err := w.sweeper.SweepExpired(ctx)
	if erased > 0 {
		log.Printf("Retention sweep erased %d expired items", erased)
		if w.metrics != nil {
			w.metrics.ObserveRetentionErasure(erased)
		}
	}
	if err != nil {
		return fmt.Errorf("retention sweep failed: %w", err)
	}
	return nil
}
