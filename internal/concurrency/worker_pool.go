package concurrency

import (
	"context"
	"sync"
)

// Run fans tasks out to at most workers goroutines and waits for all of them.
// The returned slice holds the error of each task at its index. Tasks not
// started before ctx is cancelled report ctx.Err().
func Run[T any](ctx context.Context, workers int, tasks []T, fn func(ctx context.Context, task T) error) []error {
	errs := make([]error, len(tasks))
	if len(tasks) == 0 {
		return errs
	}
	if workers < 1 {
		workers = 1
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	indexes := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				errs[idx] = fn(ctx, tasks[idx])
			}
		}()
	}

	next := 0
feed:
	for ; next < len(tasks); next++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case indexes <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	for ; next < len(tasks); next++ {
		errs[next] = ctx.Err()
	}
	return errs
}
