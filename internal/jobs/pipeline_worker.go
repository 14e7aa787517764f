package jobs

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/inkwell-ai/inkwell/internal/domain"
	"github.com/panjf2000/ants/v2"
)

// PipelineJobQueue claims pending pipeline jobs for execution.
type PipelineJobQueue interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.PipelineJob, error)
}

// PipelineRunner executes the stage chain for one claimed job.
type PipelineRunner interface {
	RunJob(ctx context.Context, job *domain.PipelineJob) error
}

// PipelineWorker claims pending pipeline jobs and dispatches them onto a
// goroutine pool. Claiming uses row locks, so concurrent workers never run
// the same job.
type PipelineWorker struct {
	queue     PipelineJobQueue
	runner    PipelineRunner
	pool      *ants.Pool
	batchSize int
}

// NewPipelineWorker creates a new PipelineWorker instance with a pool of
// poolSize concurrent chain executions.
func NewPipelineWorker(queue PipelineJobQueue, runner PipelineRunner, poolSize, batchSize int) (*PipelineWorker, error) {
	if poolSize <= 0 {
		poolSize = 4
	}
	if batchSize <= 0 {
		batchSize = poolSize * 2
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &PipelineWorker{
		queue:     queue,
		runner:    runner,
		pool:      pool,
		batchSize: batchSize,
	}, nil
}

// ProcessJobs implements the JobProcessor interface
func (w *PipelineWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.queue.ClaimPending(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}
	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending pipeline jobs", len(jobs))

	var wg sync.WaitGroup
	for _, job := range jobs {
		job := job
		wg.Add(1)
		err := w.pool.Submit(func() {
			defer wg.Done()
			if err := w.runner.RunJob(ctx, job); err != nil {
				log.Printf("Error processing job %s: %v", job.ID, err)
			}
		})
		if err != nil {
			wg.Done()
			log.Printf("Failed to submit job %s to pool: %v", job.ID, err)
		}
	}
	wg.Wait()
	return nil
}

// Release tears down the goroutine pool.
func (w *PipelineWorker) Release() {
	w.pool.Release()
}
