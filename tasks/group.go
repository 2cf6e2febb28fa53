// Package tasks runs independent operations concurrently and collects every outcome.
package tasks

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// FanOut runs every task, at most limit at a time when limit is positive, and waits for all of them.
// A failing task never cancels its siblings. Results keep the order of tasks; the returned error
// aggregates every task error and is nil when all tasks succeeded.
func FanOut[T any](ctx context.Context, limit int, tasks ...func(ctx context.Context) (T, error)) ([]Result[T], error) {
	results := make([]Result[T], len(tasks))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			v, err := task(ctx)
			results[i] = Result[T]{Index: i, Value: v, Err: err}
			return nil
		})
	}
	// goroutines report through results and always return nil, the group only bounds concurrency
	_ = g.Wait()

	var merr *multierror.Error
	for _, r := range results {
		if r.Err != nil {
			merr = multierror.Append(merr, r.Err)
		}
	}
	return results, merr.ErrorOrNil()
}

// Each runs fn for every item through FanOut.
func Each[I, T any](ctx context.Context, limit int, items []I, fn func(ctx context.Context, item I) (T, error)) ([]Result[T], error) {
	fns := make([]func(ctx context.Context) (T, error), len(items))
	for i, item := range items {
		item := item
		fns[i] = func(ctx context.Context) (T, error) {
			return fn(ctx, item)
		}
	}
	return FanOut(ctx, limit, fns...)
}
