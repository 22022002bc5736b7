package scheduler

import (
	"context"
	"log"
	"time"
)

type Task func(ctx context.Context) error

// Every drives task on a fixed cadence: once right away, then on every tick
// until ctx is cancelled. Task errors are logged, never fatal; the next tick
// always fires.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	log.Printf("[scheduler] %s every %s", name, interval)

	run := func() {
		if err := task(ctx); err != nil {
			log.Printf("[scheduler] %s: %v", name, err)
		}
	}
	run()

	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			run()
		}
	}
}
