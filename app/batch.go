package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"clintab/domain/frame"
)

// RunBatch runs several builds concurrently over one dataset. The frame is
// immutable during tabulation and every build owns its own fit cache, so
// builds share no mutable state. The first failure cancels the rest.
func (s *Service) RunBatch(ctx context.Context, data *frame.Frame, reqs []Request) ([]*BuildResult, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]*BuildResult, len(reqs))
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := s.Build(ctx, data, req)
			if err != nil {
				return fmt.Errorf("build %q: %w", req.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
