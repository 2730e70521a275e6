package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRun_ConcurrencyInvariantHolds(t *testing.T) {
	t.Parallel()

	const concurrency = 3
	var (
		inFlight atomic.Int32
		peak     atomic.Int32
	)

	release := make(chan struct{})
	tasks := make([]Task[int], 0, 12)
	for i := 0; i < 12; i++ {
		i := i
		tasks = append(tasks, func(context.Context) (int, error) {
			cur := inFlight.Add(1)
			for {
				old := peak.Load()
				if cur <= old || peak.CompareAndSwap(old, cur) {
					break
				}
			}
			<-release
			inFlight.Add(-1)
			return i, nil
		})
	}

	done := make(chan []int, 1)
	go func() {
		done <- Run(context.Background(), tasks, concurrency, 0, zap.NewNop())
	}()

	// Let the window fill, then assert it never exceeds the cap while
	// slots churn.
	require.Eventually(t, func() bool {
		return inFlight.Load() == concurrency
	}, time.Second, time.Millisecond)

	close(release)
	results := <-done

	require.Len(t, results, 12)
	require.LessOrEqual(t, peak.Load(), int32(concurrency))
}

func TestRun_SlotFreesImmediatelyOnSettle(t *testing.T) {
	t.Parallel()

	// With concurrency 1, task order of execution is submission order;
	// finishing task 0 must admit task 1 without any barrier.
	var order []int
	var mu sync.Mutex
	tasks := []Task[int]{
		func(context.Context) (int, error) {
			mu.Lock()
			order = append(order, 0)
			mu.Unlock()
			return 0, nil
		},
		func(context.Context) (int, error) {
			mu.Lock()
			order = append(order, 1)
			mu.Unlock()
			return 1, nil
		},
	}

	results := Run(context.Background(), tasks, 1, 0, zap.NewNop())
	require.Len(t, results, 2)
	require.Equal(t, []int{0, 1}, order)
}

func TestRun_ResultsAreCompletionOrder(t *testing.T) {
	t.Parallel()

	// The first-submitted task resolves last; the output must lead
	// with the faster tasks.
	slowGate := make(chan struct{})
	fastDone := make(chan struct{}, 2)
	tasks := []Task[string]{
		func(context.Context) (string, error) {
			<-slowGate
			return "slow", nil
		},
		func(context.Context) (string, error) {
			fastDone <- struct{}{}
			return "fast-1", nil
		},
		func(context.Context) (string, error) {
			fastDone <- struct{}{}
			close(slowGate)
			return "fast-2", nil
		},
	}

	results := Run(context.Background(), tasks, 3, 0, zap.NewNop())
	require.Len(t, results, 3)
	require.Equal(t, "slow", results[2])
	require.ElementsMatch(t, []string{"slow", "fast-1", "fast-2"}, results)
}

func TestRun_FailuresAreFilteredNotFatal(t *testing.T) {
	t.Parallel()

	tasks := []Task[int]{
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (int, error) { return 0, errors.New("boom") },
		func(context.Context) (int, error) { return 3, nil },
		func(context.Context) (int, error) { panic("worse") },
		func(context.Context) (int, error) { return 5, nil },
	}

	var results []int
	require.NotPanics(t, func() {
		results = Run(context.Background(), tasks, 2, 0, zap.NewNop())
	})
	require.ElementsMatch(t, []int{1, 3, 5}, results)
}

func TestRun_NoDuplicateResults(t *testing.T) {
	t.Parallel()

	tasks := make([]Task[int], 0, 50)
	for i := 0; i < 50; i++ {
		i := i
		tasks = append(tasks, func(context.Context) (int, error) {
			return i, nil
		})
	}

	results := Run(context.Background(), tasks, 7, 0, zap.NewNop())
	require.Len(t, results, 50)
	seen := make(map[int]bool, 50)
	for _, r := range results {
		require.False(t, seen[r], "result %d duplicated", r)
		seen[r] = true
	}
}

func TestRun_InterTaskDelayPacesAdmission(t *testing.T) {
	t.Parallel()

	const delay = 20 * time.Millisecond
	tasks := []Task[int]{
		func(context.Context) (int, error) { return 0, nil },
		func(context.Context) (int, error) { return 1, nil },
		func(context.Context) (int, error) { return 2, nil },
	}

	start := time.Now()
	results := Run(context.Background(), tasks, 3, delay, zap.NewNop())
	elapsed := time.Since(start)

	require.Len(t, results, 3)
	// Task 0 is admitted immediately; tasks 1 and 2 each wait the
	// pacing delay first.
	require.GreaterOrEqual(t, elapsed, 2*delay)
}

func TestRun_CanceledContextStopsAdmission(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	tasks := []Task[int]{
		func(context.Context) (int, error) {
			ran.Add(1)
			return 0, nil
		},
		func(context.Context) (int, error) {
			ran.Add(1)
			return 1, nil
		},
	}

	// The delay path checks the context before admitting task 1.
	Run(ctx, tasks, 1, time.Millisecond, zap.NewNop())
	require.LessOrEqual(t, ran.Load(), int32(1))
}

func TestRun_EmptyTaskList(t *testing.T) {
	t.Parallel()
	require.Nil(t, Run[int](context.Background(), nil, 4, 0, zap.NewNop()))
}
