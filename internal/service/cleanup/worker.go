package cleanup

import (
	"context"
	"log"
	"time"
)

type Pruner interface {
	PruneFinished(ctx context.Context, retention time.Duration) (int, error)
}

// Worker deletes finished games once they are older than Retention.
type Worker struct {
	Pruner    Pruner
	Retention time.Duration
	Interval  time.Duration
}

func NewWorker(p Pruner, retention, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{Pruner: p, Retention: retention, Interval: interval}
}

// Start runs one cleanup immediately and then one per Interval until ctx is
// cancelled. A zero Retention disables the worker.
func (w *Worker) Start(ctx context.Context) {
	if w.Retention <= 0 {
		log.Println("[CLEANUP] Retention is zero, background worker disabled")
		return
	}

	go func() {
		w.runCleanup(ctx)

		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Println("[CLEANUP] Background worker stopped")
				return
			case <-ticker.C:
				w.runCleanup(ctx)
			}
		}
	}()
	log.Println("[CLEANUP] Background worker started")
}

// runCleanup executes the actual cleanup logic
func (w *Worker) runCleanup(ctx context.Context) {
	deleted, err := w.Pruner.PruneFinished(ctx, w.Retention)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("[CLEANUP] Error pruning finished games: %v", err)
		}
		return
	}
	if deleted > 0 {
		log.Printf("[CLEANUP] Removed %d finished games from storage", deleted)
	}
}
