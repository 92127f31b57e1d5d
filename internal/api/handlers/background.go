package handlers

import (
	"context"
	"time"
)

// WaitOption configures handlers whose work waits on the fetch queue.
type WaitOption func(*waitConfig)

type waitConfig struct {
	budget time.Duration
}

// WithWaitBudget bounds how long a request waits for queued catalog work.
// When the budget runs out the handler answers 202 Accepted and the work
// finishes in the background. Zero waits for as long as the work takes.
func WithWaitBudget(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.budget = d
	}
}

func newWaitConfig(opts []WaitOption) waitConfig {
	var c waitConfig
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// runWithin runs fn detached from the request's cancellation and waits for
// it until the budget runs out or the client goes away. done is false when
// fn is still running; it then completes on its own.
func runWithin[T any](
	ctx context.Context,
	budget time.Duration,
	fn func(context.Context) (T, error),
) (result T, done bool, err error) {
	if budget <= 0 {
		result, err = fn(ctx)
		return result, true, err
	}

	type outcome struct {
		v   T
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		v, err := fn(context.WithoutCancel(ctx))
		ch <- outcome{v, err}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case o := <-ch:
		return o.v, true, o.err
	case <-timer.C:
	case <-ctx.Done():
	}
	return result, false, nil
}
