// Package batch runs independent units of work through a fixed-size
// batching scheme: units are partitioned into contiguous batches, each
// batch is processed by its own bounded worker pool, and the pool is
// released before the next batch starts.
//
// Batches bound peak memory and open file handles, isolate failures to one
// batch, and guarantee no worker state survives across batches. Units
// within a batch run concurrently with no ordering guarantee; batches
// themselves are strictly sequential.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Common processor errors.
var (
	ErrInvalidBatchSize = errors.New("batch size must be >= 1")
	ErrNilTask          = errors.New("task cannot be nil")
	ErrEmptyItems       = errors.New("items slice cannot be empty")
)

// Task processes a single unit of work. Tasks for distinct units must not
// share mutable state; each unit's file is touched by exactly one task.
type Task[T any] func(ctx context.Context, item T) error

// ProgressFunc is invoked after each completed batch.
type ProgressFunc func(p Progress)

// Processor partitions work into fixed-size batches and runs one bounded
// worker pool per batch.
type Processor[T any] struct {
	batchSize  int
	workers    int
	onProgress ProgressFunc
}

// New creates a processor. workers caps the per-batch pool; zero means
// "available parallelism minus one" (floor one).
func New[T any](batchSize, workers int) (*Processor[T], error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBatchSize, batchSize)
	}
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0) - 1
		if workers < 1 {
			workers = 1
		}
	}
	return &Processor[T]{batchSize: batchSize, workers: workers}, nil
}

// WithProgress sets a callback invoked after each completed batch.
func (p *Processor[T]) WithProgress(fn ProgressFunc) *Processor[T] {
	p.onProgress = fn
	return p
}

// Workers returns the per-batch pool size.
func (p *Processor[T]) Workers() int { return p.workers }

// Partition splits items into contiguous batches of the configured size.
// Concatenating the result reproduces items exactly, in order.
func (p *Processor[T]) Partition(items []T) [][]T {
	if len(items) == 0 {
		return nil
	}
	batches := make([][]T, 0, (len(items)+p.batchSize-1)/p.batchSize)
	for start := 0; start < len(items); start += p.batchSize {
		end := min(start+p.batchSize, len(items))
		batches = append(batches, items[start:end])
	}
	return batches
}

// Run processes every item. Within a batch, items are dispatched to a
// worker pool of at most Workers goroutines; the first task error cancels
// the batch's context, the remaining in-flight tasks drain, and the error
// aborts the run before the next batch. There is no retry and no
// checkpointing: units in later batches are left untouched.
func (p *Processor[T]) Run(ctx context.Context, items []T, task Task[T]) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}
	if task == nil {
		return ErrNilTask
	}

	batches := p.Partition(items)
	progress := newProgress(len(items), len(batches))

	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Fresh pool per batch; released by Wait before the next batch.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(min(p.workers, len(b)))
		for _, item := range b {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return task(gctx, item)
			})
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("batch %d failed: %w", i, err)
		}

		progress.addBatch(len(b))
		if p.onProgress != nil {
			p.onProgress(progress.snapshot())
		}
	}
	return nil
}

// Progress is a point-in-time view of a run.
type Progress struct {
	TotalItems   int
	DoneItems    int
	TotalBatches int
	DoneBatches  int
}

// PercentComplete returns completion as 0-100.
func (p Progress) PercentComplete() float64 {
	if p.TotalItems == 0 {
		return 0
	}
	return float64(p.DoneItems) / float64(p.TotalItems) * 100
}

type progressState struct {
	mu sync.Mutex
	p  Progress
}

func newProgress(totalItems, totalBatches int) *progressState {
	return &progressState{p: Progress{TotalItems: totalItems, TotalBatches: totalBatches}}
}

func (s *progressState) addBatch(items int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p.DoneItems += items
	s.p.DoneBatches++
}

func (s *progressState) snapshot() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p
}
