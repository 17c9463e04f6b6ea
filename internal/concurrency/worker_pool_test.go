package concurrency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSimpleWorkerPool_RunsEveryTaskOnce(t *testing.T) {
	t.Parallel()

	const tasks = 50
	var (
		mu   sync.Mutex
		seen = make(map[int]int)
	)
	SimpleWorkerPool(context.Background(), 4, tasks, func(_ context.Context, i int) {
		mu.Lock()
		seen[i]++
		mu.Unlock()
	})

	require.Len(t, seen, tasks)
	for i := 0; i < tasks; i++ {
		require.Equal(t, 1, seen[i], "task %d", i)
	}
}

func TestSimpleWorkerPool_StopsFeedingOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var ran atomic.Int32
	SimpleWorkerPool(ctx, 2, 1000, func(context.Context, int) {
		ran.Add(1)
	})
	require.Less(t, ran.Load(), int32(1000))
}

func TestSimpleWorkerPool_NoTasks(t *testing.T) {
	t.Parallel()

	SimpleWorkerPool(context.Background(), 3, 0, func(context.Context, int) {
		t.Fatal("should not run")
	})
}
