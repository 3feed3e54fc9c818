package evaluation

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ricesearch/rice-eval/internal/trec"
)

// BatchOptions controls EvaluateFiles.
type BatchOptions struct {
	// Workers bounds how many run files are loaded and scored at once.
	Workers int

	// OnRun is called after each run is scored. Calls are serialized.
	OnRun func(done, total int, summary *RunSummary)

	// Load overrides the run loader; defaults to trec.LoadRun.
	Load func(path string) (*trec.Run, error)
}

// EvaluateFiles loads and scores each run file. Summaries come back in
// the order of paths regardless of completion order. The first error
// cancels the remaining work and is returned.
func EvaluateFiles(ctx context.Context, ev *Evaluator, paths []string, opts BatchOptions) ([]*RunSummary, error) {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	load := opts.Load
	if load == nil {
		load = trec.LoadRun
	}

	summaries := make([]*RunSummary, len(paths))

	var (
		mu   sync.Mutex
		done int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			run, err := load(path)
			if err != nil {
				return err
			}

			summary := ev.EvaluateRun(run)
			summaries[i] = summary

			if opts.OnRun != nil {
				mu.Lock()
				done++
				opts.OnRun(done, len(paths), summary)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}
