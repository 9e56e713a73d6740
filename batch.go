package gpmfx

import (
	"context"

	"github.com/mohaanymo/gpmfx/internal/engine"
	"github.com/mohaanymo/gpmfx/internal/source"
)

// FileResult is the outcome of one file of ExtractFiles.
type FileResult struct {
	Path  string
	Files []string // written outputs, raw payload first
	Bytes int
	Err   error
}

// ExtractFiles extracts every path concurrently with up to threads workers
// and writes <name>.gpmf and <name>.timing.json into outputDir. Results
// are returned in input order; the error reports how many files failed.
// WithCancel applies to every file; WithProgress is ignored.
func ExtractFiles(ctx context.Context, paths []string, outputDir string, threads int, opts ...Option) ([]FileResult, error) {
	eng, o, err := newEngine(opts)
	if err != nil {
		return nil, err
	}

	pool := engine.NewWorkerPool(threads, eng, engine.NewFileWriter(outputDir), nil)
	pool.Start(ctx)
	defer pool.Stop()

	for i, p := range paths {
		pool.Submit(&engine.Job{
			Index:    i,
			Input:    source.Path{Name: p},
			BasePath: engine.BaseName(p),
			Cancel:   o.cancel,
		})
	}
	waitErr := pool.Wait()

	jobs := pool.Results()
	results := make([]FileResult, len(paths))
	for i := range results {
		results[i] = FileResult{Path: paths[i], Err: ErrCanceled}
	}
	for _, j := range jobs {
		results[j.Index] = FileResult{Path: paths[j.Index], Files: j.Files, Bytes: j.Bytes, Err: j.Err}
	}
	if waitErr == nil && len(jobs) < len(paths) {
		waitErr = ctx.Err()
	}
	return results, waitErr
}
