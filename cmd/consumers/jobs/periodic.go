package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// periodic runs tick immediately and then every interval until stopped.
// Runs never overlap.
type periodic struct {
	name     string
	interval time.Duration
	tick     func(ctx context.Context)

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (p *periodic) start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	slog.Info("Starting job", "job", p.name, "interval", p.interval)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.tick(ctx)
		for {
			select {
			case <-ticker.C:
				p.tick(ctx)
			case <-ctx.Done():
				slog.Info("Job stopped", "job", p.name)
				return
			}
		}
	}()
}

// stop cancels the running tick and waits for it to return.
func (p *periodic) stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
