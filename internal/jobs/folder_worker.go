package jobs

import (
	"context"
	"log"
)

// FolderRecomputer recomputes stale folder aggregate embeddings.
type FolderRecomputer interface {
	RecomputeStale(ctx context.Context, limit int) (int, error)
}

// FolderWorker periodically clears folder staleness by recomputing aggregate
// vectors.
type FolderWorker struct {
	recomputer FolderRecomputer
	batchSize  int
}

// NewFolderWorker creates a new FolderWorker instance
func NewFolderWorker(recomputer FolderRecomputer, batchSize int) *FolderWorker {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &FolderWorker{recomputer: recomputer, batchSize: batchSize}
}

// ProcessJobs implements the JobProcessor interface
func (w *FolderWorker) ProcessJobs(ctx context.Context) error {
	count, err := w.recomputer.RecomputeStale(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if count > 0 {
		log.Printf("Recomputed %d stale folder embeddings", count)
	}
	return nil
}
