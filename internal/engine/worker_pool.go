package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mohaanymo/gpmfx/internal/models"
	"github.com/mohaanymo/gpmfx/internal/source"
)

// Job is one file of a batch extraction.
type Job struct {
	Index    int
	Input    source.Input
	BasePath string // output path without extension
	Cancel   *models.CancelToken
}

// JobResult is the outcome of a finished job.
type JobResult struct {
	Index int
	Files []string
	Bytes int
	Err   error
}

// WorkerPool runs batch extractions concurrently.
type WorkerPool struct {
	workers    int
	engine     *Engine
	writer     Writer
	progressCh chan<- ProgressUpdate

	taskQueue chan *Job
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc

	// Stats
	completed  atomic.Int64
	totalBytes atomic.Int64
	failed     atomic.Int64
	startTime  time.Time

	results   []JobResult
	resultsMu sync.Mutex
}

// NewWorkerPool creates a new worker pool. progressCh may be nil.
func NewWorkerPool(workers int, e *Engine, w Writer, progressCh chan<- ProgressUpdate) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers:    workers,
		engine:     e,
		writer:     w,
		progressCh: progressCh,
		taskQueue:  make(chan *Job, workers*4),
	}
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.startTime = time.Now()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.taskQueue:
			if !ok {
				return
			}
			p.run(job)
		}
	}
}

func (p *WorkerPool) run(job *Job) {
	res := JobResult{Index: job.Index}

	out, err := p.engine.Extract(p.ctx, job.Input, Hooks{
		Cancel: job.Cancel,
		Progress: func(pct int) {
			// The final 100 is sent with Completed.
			if pct < 100 {
				p.sendProgress(ProgressUpdate{JobIndex: job.Index, Percent: pct})
			}
		},
	})
	if err == nil && p.writer != nil {
		res.Files, err = p.writer.Write(p.ctx, out, job.BasePath)
	}

	if err != nil {
		res.Err = err
		p.failed.Add(1)
	} else {
		res.Bytes = len(out.RawData)
		p.completed.Add(1)
		p.totalBytes.Add(int64(res.Bytes))
	}

	p.resultsMu.Lock()
	p.results = append(p.results, res)
	p.resultsMu.Unlock()

	p.sendProgress(ProgressUpdate{
		JobIndex:  job.Index,
		Percent:   100,
		Completed: err == nil,
		Bytes:     res.Bytes,
		Error:     err,
	})
}

func (p *WorkerPool) sendProgress(u ProgressUpdate) {
	if p.progressCh == nil {
		return
	}
	select {
	case p.progressCh <- u:
	case <-p.ctx.Done():
	}
}

// Submit adds a job to the queue.
func (p *WorkerPool) Submit(job *Job) {
	select {
	case p.taskQueue <- job:
	case <-p.ctx.Done():
	}
}

// Wait blocks until all jobs are complete. It fails if any job failed.
func (p *WorkerPool) Wait() error {
	close(p.taskQueue)
	p.wg.Wait()

	failed := p.failed.Load()
	if failed > 0 {
		return fmt.Errorf("%d/%d extractions failed", failed, failed+p.completed.Load())
	}
	return nil
}

// Stop cancels the running jobs.
func (p *WorkerPool) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

// Results returns the finished jobs in completion order.
func (p *WorkerPool) Results() []JobResult {
	p.resultsMu.Lock()
	defer p.resultsMu.Unlock()
	return append([]JobResult(nil), p.results...)
}

// Stats returns current batch statistics.
func (p *WorkerPool) Stats() (completed int64, totalBytes int64, elapsed time.Duration) {
	return p.completed.Load(), p.totalBytes.Load(), time.Since(p.startTime)
}
