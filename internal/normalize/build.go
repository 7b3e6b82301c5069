package normalize

import (
	"context"
	"runtime"

	"github.com/matsen/bibpage/internal/bib"
	"github.com/matsen/bibpage/internal/record"
	"golang.org/x/sync/errgroup"
)

// Build normalizes every entry in source order and drops rejected entries.
// Duplicate keys are kept.
func Build(entries []bib.Entry) record.Collection {
	coll, _ := BuildReport(entries)
	return coll
}

// BuildReport is Build that also returns the rejected entries.
// Rejections are for diagnostics only; they never appear in the collection.
func BuildReport(entries []bib.Entry) (record.Collection, []Rejection) {
	coll := make(record.Collection, 0, len(entries))
	var rejected []Rejection
	for i, e := range entries {
		ne, err := Entry(e)
		if err != nil {
			rejected = append(rejected, Rejection{Index: i, Key: e.Key, Err: err})
			continue
		}
		coll = append(coll, ne)
	}
	return coll, rejected
}

// BuildParallel is BuildReport with entries normalized on up to workers
// goroutines. The result is identical to BuildReport. A workers value of
// zero or less uses GOMAXPROCS. The only possible error is ctx's.
func BuildParallel(ctx context.Context, entries []bib.Entry, workers int) (record.Collection, []Rejection, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]record.Entry, len(entries))
	errs := make([]error, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = Entry(entries[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	coll := make(record.Collection, 0, len(entries))
	var rejected []Rejection
	for i := range entries {
		if errs[i] != nil {
			rejected = append(rejected, Rejection{Index: i, Key: entries[i].Key, Err: errs[i]})
			continue
		}
		coll = append(coll, results[i])
	}
	return coll, rejected, nil
}
