package compiler

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of compiling one function of a batch.
type Outcome struct {
	Result *Result
	Err    error
}

// CompileAll compiles fns with at most workers functions in flight and
// returns their outcomes in input order. Workers <= 0 uses GOMAXPROCS.
//
// Compile errors are recorded per function. Only cancellation of ctx stops
// the batch early; functions not started by then carry ctx's error.
func (c *Compiler) CompileAll(ctx context.Context, fns []*Function, workers int) ([]Outcome, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Outcome, len(fns))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, fn := range fns {
		if err := gctx.Err(); err != nil {
			for j := i; j < len(fns); j++ {
				out[j].Err = err
			}
			break
		}
		i, fn := i, fn
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				out[i].Err = err
				return err
			}
			res, err := c.Compile(fn)
			out[i] = Outcome{Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, ctx.Err()
}
