// Package queue carries translation jobs to the workers that run them.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/valpere/vietsub/internal"
)

// ErrClosed is returned by Enqueue and Dequeue once the queue is closed and
// drained.
var ErrClosed = errors.New("queue closed")

// Delivery is one dequeued job. It must be passed back to Ack or Nack.
type Delivery struct {
	Job internal.Job

	tag uint64
}

// Queue is a job queue with explicit acknowledgement.
type Queue interface {
	Enqueue(ctx context.Context, job internal.Job) error
	// Dequeue blocks until a job is available, ctx is done or the queue is
	// closed.
	Dequeue(ctx context.Context) (*Delivery, error)
	Ack(d *Delivery) error
	Nack(d *Delivery, requeue bool) error
	Close() error
}

// MemoryQueue is a bounded in-process queue. Close stops new jobs; jobs
// already queued are still delivered.
type MemoryQueue struct {
	jobs   chan internal.Job
	mu     sync.RWMutex
	closed bool
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 100
	}
	return &MemoryQueue{jobs: make(chan internal.Job, size)}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job internal.Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrClosed
	}
	select {
	case q.jobs <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("queue full (%d jobs)", cap(q.jobs))
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	select {
	case job, ok := <-q.jobs:
		if !ok {
			return nil, ErrClosed
		}
		return &Delivery{Job: job}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) Ack(*Delivery) error { return nil }

// Nack with requeue puts the job back at the tail of the queue.
func (q *MemoryQueue) Nack(d *Delivery, requeue bool) error {
	if !requeue || d == nil {
		return nil
	}
	return q.Enqueue(context.Background(), d.Job)
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	return nil
}

// Len reports the number of queued jobs.
func (q *MemoryQueue) Len() int {
	return len(q.jobs)
}
