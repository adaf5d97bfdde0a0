package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ResyncProcessor runs SyncWorker.ResyncAll on a fixed interval.
type ResyncProcessor struct {
	worker   *SyncWorker
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewResyncProcessor(worker *SyncWorker, interval time.Duration) *ResyncProcessor {
	return &ResyncProcessor{
		worker:   worker,
		interval: interval,
	}
}

// Start begins the loop, resyncing once immediately. It returns an error if already running.
func (p *ResyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("resync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Resync processor started", "interval", p.interval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ResyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Resync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Resync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
	return nil
}

func (p *ResyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *ResyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.resync(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.resync(ctx)
		}
	}
}

func (p *ResyncProcessor) resync(ctx context.Context) {
	if _, err := p.worker.ResyncAll(ctx); err != nil {
		slog.ErrorContext(ctx, "Periodic rewards resync failed", "error", err)
	}
}
