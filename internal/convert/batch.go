package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Batch runs independent conversions concurrently, at most parallelism at a
// time (<= 0 means one per CPU). Every job must target a distinct output.
// The first failure cancels jobs that have not started yet and is returned;
// results holds nil for jobs that failed or never ran.
func Batch(ctx context.Context, jobs []Config, parallelism int) ([]*Result, error) {
	if err := distinctOutputs(jobs); err != nil {
		return nil, err
	}
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	results := make([]*Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelism)

	for i := range jobs {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Run(jobs[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	err := g.Wait()
	return results, err
}

// distinctOutputs rejects jobs that would write the same document or binaries.
func distinctOutputs(jobs []Config) error {
	seen := make(map[string]int, len(jobs))
	for i := range jobs {
		out, err := filepath.Abs(jobs[i].Output())
		if err != nil {
			out = jobs[i].Output()
		}
		// Binaries are named after the document stem
		stem := strings.TrimSuffix(out, filepath.Ext(out))
		if prev, ok := seen[stem]; ok {
			return &StageError{
				Stage: StageConfig,
				Input: jobs[i].InputPath,
				Err:   fmt.Errorf("output %s is also written by job %d (%s)", out, prev, jobs[prev].InputPath),
			}
		}
		seen[stem] = i
	}
	return nil
}
