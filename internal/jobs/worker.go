package jobs

import (
	"context"
	"log"
	"time"
)

// Task is a unit of periodic background work.
type Task interface {
	Run(ctx context.Context) error
}

// Worker drives a Task on a fixed interval until stopped.
type Worker struct {
	task     Task
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewWorker creates a Worker that runs task every interval.
func NewWorker(task Task, interval time.Duration) *Worker {
	return &Worker{
		task:     task,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the task once immediately, then on every tick. Blocks until
// the context is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.done)

	log.Printf("background worker started, interval %v", w.interval)

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("background worker stopped: context cancelled")
			return
		case <-w.stop:
			log.Println("background worker stopped")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if err := w.task.Run(ctx); err != nil {
		log.Printf("background task error: %v", err)
	}
}

// Stop signals the worker and waits for the current run to finish.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}
