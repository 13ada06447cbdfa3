package async

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pool runs indexed tasks over a fixed number of workers. Each task writes its
// own output slot, so callers keep results in input order.
type Pool struct {
	logger  *slog.Logger
	workers int
	timeout time.Duration // 0 -> no per-task timeout
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithTaskTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPool(logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		logger:  logger,
		workers: 1,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Workers reports the configured concurrency.
func (p *Pool) Workers() int { return p.workers }

// Map calls fn(ctx, i) for every i in [0, n). It returns ctx.Err() if the
// context is cancelled before all tasks were handed out; tasks already started
// run to completion.
func (p *Pool) Map(ctx context.Context, n int, fn func(ctx context.Context, i int)) error {
	if n <= 0 {
		return ctx.Err()
	}

	workers := p.workers
	if workers > n {
		workers = n
	}

	run := func(i int) {
		if p.timeout <= 0 {
			fn(ctx, i)
			return
		}
		tctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		fn(tctx, i)
	}

	if workers == 1 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			run(i)
		}
		return nil
	}

	ch := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.logger.Debug("pool.worker.started", "worker_id", workerID)
			for i := range ch {
				run(i)
			}
			p.logger.Debug("pool.worker.stopped", "worker_id", workerID)
		}(w + 1)
	}

	var err error
feed:
	for i := 0; i < n; i++ {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case ch <- i:
		}
	}
	close(ch)
	wg.Wait()

	if err != nil {
		p.logger.Warn("pool.interrupted", "error", err)
	}
	return err
}
