package ordering

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type write struct {
	id  string
	op  string
	run func(ctx context.Context) error
}

// gather runs every write with at most limit in flight and waits for all of
// them. A failed write does not cancel the others.
func gather(ctx context.Context, op string, limit int, writes []write) error {
	if len(writes) == 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(limit)

	failures := make([]*WriteError, len(writes))
	for i, w := range writes {
		g.Go(func() error {
			if err := w.run(ctx); err != nil {
				failures[i] = &WriteError{ID: w.id, Op: w.op, Err: err}
			}
			return nil
		})
	}
	_ = g.Wait()

	batch := &BatchError{Op: op, Attempted: len(writes)}
	for _, failure := range failures {
		if failure != nil {
			batch.Failures = append(batch.Failures, failure)
		}
	}
	if len(batch.Failures) == 0 {
		return nil
	}
	return batch
}
