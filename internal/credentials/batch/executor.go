// Package batch runs independent operations with bounded concurrency.
package batch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is used when an executor is created with a non-positive limit.
const DefaultLimit = 10

// Result is the outcome of one input. Index is the input position.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Executor bounds how many operations run at the same time.
type Executor struct {
	limit int
}

// NewExecutor creates an executor admitting at most limit concurrent operations.
func NewExecutor(limit int) *Executor {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Executor{limit: limit}
}

// Limit returns the concurrency limit.
func (e *Executor) Limit() int {
	return e.limit
}

// Run calls fn once per input and returns one result per input, in input order.
//
// A failing or panicking call does not stop the others; Run returns only after
// every call has finished. Cancellation is left to fn through ctx.
func Run[In, Out any](
	ctx context.Context,
	e *Executor,
	inputs []In,
	fn func(ctx context.Context, in In) (Out, error),
) []Result[Out] {
	results := make([]Result[Out], len(inputs))
	if len(inputs) == 0 {
		return results
	}

	// The group never sees an error, so no call is cancelled by another's failure.
	var g errgroup.Group
	g.SetLimit(e.limit)

	for i, in := range inputs {
		g.Go(func() error {
			results[i] = call(ctx, i, in, fn)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func call[In, Out any](
	ctx context.Context,
	index int,
	in In,
	fn func(ctx context.Context, in In) (Out, error),
) (result Result[Out]) {
	result.Index = index
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("batch item %d panicked: %v", index, r)
		}
	}()
	result.Value, result.Err = fn(ctx, in)
	return result
}
