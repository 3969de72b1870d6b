package worker

import (
	"context"
	"sync"
	"time"

	"github.com/tt1717/battleserver/internal/logger"
)

// Job is a unit of background work.
type Job interface {
	Run(context.Context) error
	Name() string
}

// Pool runs jobs from a bounded queue on a fixed set of workers. Battle
// reporting stays fire-and-forget by pushing its bookkeeping through here.
type Pool struct {
	jobs    chan Job
	workers int
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	log     *logger.Logger
}

// NewPool creates a pool with the given worker count and queue size.
func NewPool(workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 2
	}
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		log:     logger.Default().WithPrefix("worker"),
	}
}

// Start launches the workers. They run until ctx is cancelled or Stop
// closes the queue.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.log.Info("starting %d workers", p.workers)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i+1)
	}
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.log.WithField("worker_id", id)

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			jobLog := log.WithField("job", job.Name())
			start := time.Now()
			if err := job.Run(logger.NewContext(ctx, jobLog)); err != nil {
				jobLog.Error("job failed after %v: %v", time.Since(start), err)
			} else {
				jobLog.Debug("job completed in %v", time.Since(start))
			}
		}
	}
}

// Submit queues a job, blocking while the queue is full.
func (p *Pool) Submit(job Job) {
	p.jobs <- job
}

// Pending returns the number of queued jobs.
func (p *Pool) Pending() int {
	return len(p.jobs)
}

// Stop cancels the workers and waits for them to finish.
func (p *Pool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	close(p.jobs)
	p.wg.Wait()
	p.log.Info("workers stopped")
}

// Func adapts a function to the Job interface.
type Func struct {
	JobName string
	Fn      func(context.Context) error
}

func (f Func) Run(ctx context.Context) error { return f.Fn(ctx) }
func (f Func) Name() string                  { return f.JobName }
