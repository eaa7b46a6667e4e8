package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
)

// Task is one unit of parallel work, typically the indexing of a single
// document. The context is the pool's run context; tasks must stop early
// when it is cancelled.
type Task func(ctx context.Context) error

// Pool runs tasks across a fixed number of goroutines. Task errors are
// collected, not fatal: one failing document never stops the rest of a run.
type Pool struct {
	tasks    chan Task
	size     int
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	errors   []error
	errorsMu sync.Mutex
	logger   arbor.ILogger
}

// NewPool creates a pool of the given size bound to ctx. Cancelling ctx
// stops the workers after their current task.
func NewPool(ctx context.Context, size int, logger arbor.ILogger) *Pool {
	if size <= 0 {
		size = 4
	}

	runCtx, cancel := context.WithCancel(ctx)

	return &Pool{
		tasks:  make(chan Task, size*2),
		size:   size,
		ctx:    runCtx,
		cancel: cancel,
		logger: logger,
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	p.logger.Debug().
		Int("workers", p.size).
		Msg("Starting worker pool")

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit queues a task. It fails only when the pool is shutting down.
func (p *Pool) Submit(task Task) error {
	select {
	case p.tasks <- task:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Wait closes the queue and blocks until every submitted task has finished.
func (p *Pool) Wait() {
	close(p.tasks)
	p.wg.Wait()
}

// Shutdown cancels in-flight tasks and waits for the workers to exit.
func (p *Pool) Shutdown() {
	p.cancel()
	p.Wait()
}

// Errors returns the task errors collected so far.
func (p *Pool) Errors() []error {
	p.errorsMu.Lock()
	defer p.errorsMu.Unlock()
	return p.errors
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}

			if err := task(p.ctx); err != nil {
				p.errorsMu.Lock()
				p.errors = append(p.errors, err)
				p.errorsMu.Unlock()

				p.logger.Error().
					Err(err).
					Int("worker_id", id).
					Msg("Task failed")
			}

		case <-p.ctx.Done():
			return
		}
	}
}
