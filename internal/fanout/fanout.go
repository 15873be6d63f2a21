// Package fanout runs one task per item with all-or-nothing semantics.
package fanout

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Map calls fn for every item concurrently, at most limit at a time
// (unbounded when limit <= 0), and returns the results in input order.
//
// The first error cancels the ctx passed to the remaining calls and is the
// error returned; no partial results are returned.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(ctx context.Context, index int, item T) (R, error)) ([]R, error) {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	results := make([]R, len(items))
	for i, item := range items {
		g.Go(func() error {
			// a failed sibling may have cancelled us while we waited for a slot
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, i, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
