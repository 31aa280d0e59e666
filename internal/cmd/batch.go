package cmd

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// forEach runs fn for every index in [0, n) on at most workers goroutines.
// Callers store results by index so output order does not depend on
// scheduling. The first error cancels the remaining work.
func forEach(ctx context.Context, n, workers int, fn func(ctx context.Context, i int) error) error {
	if workers < 1 {
		workers = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, workers)
	for i := range n {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
