package workers

import (
	"context"
	"creditline/contract"
	"log/slog"
	"time"
)

// EvictionWorker periodically sweeps the account registry for processors
// that have been idle longer than the configured timeout. Without it the
// registry accumulates one live processor per account ever referenced;
// whether that matters is a deployment choice, so the worker only runs
// when an idle timeout is configured.
type EvictionWorker struct {
	log       *slog.Logger
	registry  contract.Registry
	interval  time.Duration
	olderThan time.Duration
}

func NewEvictionWorker(log *slog.Logger, registry contract.Registry, interval, olderThan time.Duration) *EvictionWorker {
	return &EvictionWorker{log: log, registry: registry, interval: interval, olderThan: olderThan}
}

func (w *EvictionWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping eviction sweeps")
			return nil
		case <-ticker.C:
			if n := w.registry.EvictIdle(w.olderThan); n > 0 {
				w.log.Info("Idle account processors evicted", "count", n)
			}
		}
	}
}
