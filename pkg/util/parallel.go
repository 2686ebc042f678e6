package util

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// Parallel runs fn for every input with at most workerLimit running at once.
// Unlike a fail-fast group, every input is attempted; the errors are combined.
// Inputs not yet started when ctx is done are skipped.
func Parallel[T any](ctx context.Context, inputs []T, workerLimit int, fn func(context.Context, T) error) error {
	if len(inputs) == 0 {
		return nil
	}
	if workerLimit <= 0 {
		workerLimit = 1
	}

	tasks := make(chan T)
	var (
		mu     sync.Mutex
		result *multierror.Error
		wg     sync.WaitGroup
	)

	for i := 0; i < min(workerLimit, len(inputs)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range tasks {
				if err := fn(ctx, item); err != nil {
					mu.Lock()
					result = multierror.Append(result, err)
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for _, item := range inputs {
		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case tasks <- item:
				continue
			}
		}
		mu.Lock()
		result = multierror.Append(result, ctx.Err())
		mu.Unlock()
		break feed
	}
	close(tasks)
	wg.Wait()

	return result.ErrorOrNil()
}
