// Package queue implements a bounded-concurrency task runner with
// inter-task pacing.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Task is one unit of asynchronous work.
type Task[T any] func(ctx context.Context) (T, error)

// Run executes tasks with at most concurrency in flight at any
// instant. Admission of task i>0 waits delay first, a fixed pacing
// guard independent of the concurrency window. A slot frees as soon as
// any in-flight task settles; the next queued task is admitted
// immediately, with no barrier between waves.
//
// Failures (errors or panics) are logged and excluded from the result
// slice; one failing task never aborts the batch. Results are in
// completion order, not submission order. Consumers that need
// submission order must pair each task with its original index.
func Run[T any](ctx context.Context, tasks []Task[T], concurrency int, delay time.Duration, logger *zap.Logger) []T {
	if len(tasks) == 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sem := semaphore.NewWeighted(int64(concurrency))
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []T
	)

	for i, task := range tasks {
		if i > 0 && delay > 0 {
			if err := pace(ctx, delay); err != nil {
				logger.Debug("pacing interrupted", zap.Error(err))
				break
			}
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			logger.Debug("admission interrupted", zap.Error(err))
			break
		}
		wg.Add(1)
		go func(idx int, t Task[T]) {
			defer wg.Done()
			defer sem.Release(1)
			v, err := runOne(ctx, t)
			if err != nil {
				logger.Warn("task failed, skipping",
					zap.Int("task", idx),
					zap.Error(err),
				)
				return
			}
			mu.Lock()
			results = append(results, v)
			mu.Unlock()
		}(i, task)
	}

	wg.Wait()
	return results
}

// runOne shields Run from a panicking task.
func runOne[T any](ctx context.Context, t Task[T]) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return t(ctx)
}

func pace(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("inter-task delay: %w", ctx.Err())
	}
}
