package tasks_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bridgekit/gravity-orchestrator/tasks"
)

func TestFanOut_NoShortCircuit(t *testing.T) {
	t.Parallel()

	errFirst := errors.New("first failed")
	var finished int32
	results, err := tasks.FanOut(context.Background(), 0,
		func(ctx context.Context) (string, error) {
			return "", errFirst
		},
		func(ctx context.Context) (string, error) {
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&finished, 1)
			return "second", nil
		},
		func(ctx context.Context) (string, error) {
			atomic.AddInt32(&finished, 1)
			return "third", ctx.Err()
		},
	)
	require.ErrorIs(t, err, errFirst)
	require.Equal(t, int32(2), atomic.LoadInt32(&finished))
	require.Len(t, results, 3)
	require.ErrorIs(t, results[0].Err, errFirst)
	require.Equal(t, "second", results[1].Value)
	require.NoError(t, results[1].Err)
	require.Equal(t, "third", results[2].Value)
	require.NoError(t, results[2].Err)
	require.Equal(t, 2, results[2].Index)
}

func TestFanOut_AggregatesErrors(t *testing.T) {
	t.Parallel()

	errA, errB := errors.New("a"), errors.New("b")
	_, err := tasks.FanOut(context.Background(), 1,
		func(ctx context.Context) (int, error) { return 0, errA },
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 0, errB },
	)
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
}

func TestFanOut_AllSucceeded(t *testing.T) {
	t.Parallel()

	results, err := tasks.FanOut(context.Background(), 1,
		func(ctx context.Context) (int, error) { return 1, nil },
		func(ctx context.Context) (int, error) { return 2, nil },
	)
	require.NoError(t, err)
	require.Equal(t, []tasks.Result[int]{{Index: 0, Value: 1}, {Index: 1, Value: 2}}, results)

	results, err = tasks.FanOut[int](context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestEach(t *testing.T) {
	t.Parallel()

	var running, maxRunning int32
	results, err := tasks.Each(context.Background(), 2, []int{1, 2, 3, 4, 5}, func(ctx context.Context, item int) (int, error) {
		cur := atomic.AddInt32(&running, 1)
		for {
			prev := atomic.LoadInt32(&maxRunning)
			if cur <= prev || atomic.CompareAndSwapInt32(&maxRunning, prev, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return item * item, nil
	})
	require.NoError(t, err)
	require.LessOrEqual(t, atomic.LoadInt32(&maxRunning), int32(2))
	squares := make([]int, 0, len(results))
	for _, r := range results {
		squares = append(squares, r.Value)
	}
	require.Equal(t, []int{1, 4, 9, 16, 25}, squares)
}
