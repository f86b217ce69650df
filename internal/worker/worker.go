// Package worker runs independent translation jobs concurrently. Jobs share
// nothing but the queue; each handler call owns its own state.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/valpere/vietsub/internal"
	"github.com/valpere/vietsub/internal/queue"
)

// Handler processes one job.
type Handler func(ctx context.Context, job internal.Job) error

// Pool pulls jobs from Queue and runs Handler on up to Workers of them at
// once.
type Pool struct {
	Queue   queue.Queue
	Handler Handler
	Workers int
	// Requeue puts failed jobs back on the queue instead of dropping them.
	Requeue bool
	// JobTimeout bounds a single job; zero means no limit.
	JobTimeout time.Duration
	Logger     *slog.Logger
}

// Stats counts handled jobs.
type Stats struct {
	Processed int
	Failed    int
}

// Run blocks until the queue is closed and drained or ctx is done.
func (p *Pool) Run(ctx context.Context) Stats {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}

	var processed, failed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			wlog := logger.With("worker", id)
			for {
				d, err := p.Queue.Dequeue(ctx)
				if err != nil {
					if !errors.Is(err, queue.ErrClosed) && ctx.Err() == nil {
						wlog.Error("dequeue failed", "error", err)
					}
					return
				}
				if p.handle(ctx, wlog, d) {
					processed.Add(1)
				} else {
					failed.Add(1)
				}
			}
		}(i + 1)
	}
	wg.Wait()

	return Stats{Processed: int(processed.Load()), Failed: int(failed.Load())}
}

func (p *Pool) handle(ctx context.Context, logger *slog.Logger, d *queue.Delivery) bool {
	jobCtx := ctx
	if p.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, p.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := p.Handler(jobCtx, d.Job)
	if err != nil {
		logger.Error("job failed", "job_id", d.Job.ID, "input", d.Job.InputPath, "error", err)
		if nerr := p.Queue.Nack(d, p.Requeue); nerr != nil {
			logger.Warn("nack failed", "job_id", d.Job.ID, "error", nerr)
		}
		return false
	}

	logger.Debug("job finished", "job_id", d.Job.ID, "duration", time.Since(start).Round(time.Millisecond))
	if aerr := p.Queue.Ack(d); aerr != nil {
		logger.Warn("ack failed", "job_id", d.Job.ID, "error", aerr)
	}
	return true
}
