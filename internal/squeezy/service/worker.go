package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/squeezy/pkg/slogx"
)

// ticker runs job once at start and then every interval until stopped. A
// stop waits for a running job to return.
type ticker struct {
	name     string
	interval time.Duration
	logger   *slog.Logger
	job      func(ctx context.Context)

	stopCh chan struct{}
	doneCh chan struct{}
}

func newTicker(name string, interval time.Duration, logger *slog.Logger, job func(ctx context.Context)) *ticker {
	return &ticker{
		name:     name,
		interval: interval,
		logger:   logger,
		job:      job,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (t *ticker) start() {
	go t.run()
	t.logger.Info(t.name+" started", "interval", t.interval)
}

func (t *ticker) stop() {
	close(t.stopCh)
	<-t.doneCh
	t.logger.Info(t.name + " stopped")
}

func (t *ticker) run() {
	defer close(t.doneCh)

	ctx := slogx.WithContext(context.Background(), t.logger.With("worker", t.name))

	tick := time.NewTicker(t.interval)
	defer tick.Stop()

	t.job(ctx)
	for {
		select {
		case <-tick.C:
			t.job(ctx)
		case <-t.stopCh:
			return
		}
	}
}
