package suspense

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// All waits for every *Promise among values and returns the values with each
// promise replaced by its settled value. Non-promise values pass through.
//
// All fails fast rather than waiting for every promise to settle: the first
// rejection wins, cancels the context of the remaining waits and is returned
// alone. A cancelled promise fails the join with ErrCanceled.
func All(ctx context.Context, values ...any) ([]any, error) {
	out := make([]any, len(values))
	g, gctx := errgroup.WithContext(ctx)

	for i, v := range values {
		p, ok := v.(*Promise)
		if !ok {
			out[i] = v
			continue
		}
		g.Go(func() error {
			res, err := p.Await(gctx)
			if err != nil {
				return err
			}
			if r, _ := p.Poll(); r.Canceled {
				return ErrCanceled
			}
			out[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// HasPromise reports whether any value is a *Promise.
func HasPromise(values ...any) bool {
	for _, v := range values {
		if _, ok := v.(*Promise); ok {
			return true
		}
	}
	return false
}
