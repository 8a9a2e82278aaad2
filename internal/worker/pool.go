// Package worker runs store-mutating tasks on a fixed number of goroutines,
// away from the interactive caller.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultSize is the number of workers used when none is configured.
const DefaultSize = 4

// ErrClosed is delivered for tasks submitted after Close.
var ErrClosed = errors.New("worker pool closed")

// Task is a unit of work. The context is the pool's base context; tasks are
// never cancelled or timed out individually.
type Task func(ctx context.Context) error

type job struct {
	fn   Task
	done chan error
}

// Pool is a fixed-size worker pool with a bounded queue.
type Pool struct {
	ctx   context.Context
	jobs  chan job
	group errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// New starts size workers. Tasks run with ctx.
func New(ctx context.Context, size int) *Pool {
	if size < 1 {
		size = DefaultSize
	}
	p := &Pool{
		ctx:  ctx,
		jobs: make(chan job, size*16),
	}
	for range size {
		p.group.Go(p.run)
	}
	return p
}

func (p *Pool) run() error {
	for j := range p.jobs {
		j.done <- p.exec(j.fn)
	}
	return nil
}

// exec converts a panicking task into an error so a worker is never lost.
func (p *Pool) exec(fn Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return fn(p.ctx)
}

// Submit queues fn and returns a channel that receives its result exactly once.
// Submit blocks only while the queue is full.
func (p *Pool) Submit(fn Task) <-chan error {
	done := make(chan error, 1)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		done <- ErrClosed
		return done
	}
	p.jobs <- job{fn: fn, done: done}
	return done
}

// Close stops accepting tasks, lets queued ones finish and waits for the workers.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	_ = p.group.Wait()
}
