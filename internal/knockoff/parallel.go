package knockoff

import (
	"context"
	"runtime"
	"sync"

	"github.com/inodb/snpko/internal/genotype"
)

// WorkItem is one (label, trial) unit ready for fitting and filtering.
type WorkItem struct {
	Seq      int
	Label    string
	Trial    int
	Seed     int64
	Features *genotype.Matrix // interleaved observed/knockoff columns
	Response []float64
}

// WorkResult holds the filter decision for a single unit.
type WorkResult struct {
	Seq      int
	Decision *Decision
	Err      error
}

// ParallelFilter fits and filters work items using a pool of workers.
// Results are sent in arrival order; use OrderedCollect to consume them in
// sequence-number order. If workers is 0, runtime.NumCPU() is used.
func (e *Engine) ParallelFilter(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				if err := ctx.Err(); err != nil {
					results <- WorkResult{Seq: item.Seq, Err: err}
					continue
				}
				d, err := e.filterUnit(ctx, item)
				results <- WorkResult{Seq: item.Seq, Decision: d, Err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
