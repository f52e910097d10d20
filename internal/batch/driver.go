package batch

import (
	"context"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"

	"structure-name-eval/internal/classify"
	"structure-name-eval/internal/dose"
)

// Options controls a batch run. Zero values pick sensible defaults.
type Options struct {
	// Workers sets the pool size; 0 derives it from the CPU count.
	Workers int
}

// Result is the outcome of one batch run: per-name records in input
// order plus the list-level checks.
type Result struct {
	Records        []classify.ParsedName
	Duplicates     []string
	Overlength     []string
	NamesWithSpace []string
}

// Run classifies every name concurrently and evaluates the list-level
// checks. Records come back in input order regardless of completion
// order. Run returns ctx.Err when the context is cancelled before all
// names are processed.
func Run(ctx context.Context, names []string, opts Options) (*Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = determineWorkerCount()
	}
	if workers > len(names) && len(names) > 0 {
		workers = len(names)
	}

	logrus.WithFields(logrus.Fields{
		"names":   len(names),
		"workers": workers,
	}).Debug("classification batch started")

	records := make([]classify.ParsedName, len(names))
	idxCh := make(chan int)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range idxCh {
				records[idx] = ClassifyOne(names[idx])
			}
		}()
	}

	var cancelled error
feed:
	for i := range names {
		select {
		case idxCh <- i:
		case <-ctx.Done():
			cancelled = ctx.Err()
			break feed
		}
	}
	close(idxCh)
	wg.Wait()

	if cancelled != nil {
		return nil, cancelled
	}

	res := &Result{
		Records:    records,
		Duplicates: FindDuplicates(names),
	}
	for _, name := range names {
		if !ValidLength(name) {
			res.Overlength = append(res.Overlength, name)
		}
		if !NoSpaces(name) {
			res.NamesWithSpace = append(res.NamesWithSpace, name)
		}
	}
	return res, nil
}

// ClassifyOne classifies a single name and resolves its dose specifier
// into total centigray and fraction count. Relative dose levels and
// malformed specifiers keep their raw text with nil numerics.
func ClassifyOne(name string) classify.ParsedName {
	rec := classify.Classify(name)
	if rec.DoseSpecifier != "" {
		amt := dose.Normalize(rec.DoseSpecifier)
		rec.TotalDoseCGy = amt.TotalCGy
		rec.Fractions = amt.Fractions
	}
	return rec
}

func determineWorkerCount() int {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	if workers > 12 {
		workers = 12
	}
	return workers
}
