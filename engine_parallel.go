package featurescope

import (
	"context"
	"runtime"
	"sync"

	"github.com/jward/featurescope/internal/resolve"
)

// resolveParallel resolves validated tasks on a worker pool. Tasks share
// nothing but read-only declarations, so results only need collecting;
// resolve.Collect restores the deterministic order.
func resolveParallel(ctx context.Context, tasks []resolve.Task) ([]resolve.Edge, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	numWorkers := min(runtime.NumCPU(), len(tasks))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan resolve.Task, len(tasks))
	for _, t := range tasks {
		workCh <- t
	}
	close(workCh)

	resultCh := make(chan resolve.Edge, len(tasks))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range workCh {
				if ctx.Err() != nil {
					return
				}
				resultCh <- t.Resolve()
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	edges := make([]resolve.Edge, 0, len(tasks))
	for e := range resultCh {
		edges = append(edges, e)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return edges, nil
}
