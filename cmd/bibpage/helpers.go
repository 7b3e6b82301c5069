package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/matsen/bibpage/internal/bib"
	"github.com/matsen/bibpage/internal/config"
	"github.com/matsen/bibpage/internal/logging"
	"github.com/matsen/bibpage/internal/normalize"
	"github.com/matsen/bibpage/internal/record"
	"github.com/matsen/bibpage/internal/storage"
)

// loaded is a parsed and normalized bibliography.
type loaded struct {
	Entries    []bib.Entry
	Collection record.Collection
	Rejected   []normalize.Rejection
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// newLogger builds the stderr logger from flags and config.
// The --log-level flag wins over config; --verbose raises the default to info.
func newLogger(cfg *config.Config) logging.Logger {
	level := cfg.LogLevel
	if verbose && level == "" {
		level = "info"
	}
	if logLevel != "" {
		level = logLevel
	}

	lvl, err := logging.ParseLevel(level)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return logging.New(os.Stderr, lvl, !humanOutput)
}

// effectiveWorkers returns the flag value when set, else the configured one.
func effectiveWorkers(flagValue int, flagSet bool, cfg *config.Config) int {
	if flagSet {
		return flagValue
	}
	return cfg.Workers
}

// loadBibliography parses path and builds the normalized collection.
// Zero workers normalizes sequentially.
func loadBibliography(ctx context.Context, path string, workers int, log logging.Logger) (*loaded, error) {
	entries, err := bib.ParseFile(path)
	if err != nil {
		return nil, err
	}
	log.Debug(ctx, "parsed bibliography", "path", path, "entries", len(entries))

	var (
		coll     record.Collection
		rejected []normalize.Rejection
	)
	if workers > 0 {
		coll, rejected, err = normalize.BuildParallel(ctx, entries, workers)
		if err != nil {
			return nil, err
		}
	} else {
		coll, rejected = normalize.BuildReport(entries)
	}

	for _, r := range rejected {
		log.Warn(ctx, "entry rejected", "index", r.Index, "key", r.Key, "error", r.Err)
	}
	log.Info(ctx, "built collection", "entries", len(coll), "rejected", len(rejected))

	return &loaded{Entries: entries, Collection: coll, Rejected: rejected}, nil
}

// mustLoadBibliography is loadBibliography that exits on error.
func mustLoadBibliography(ctx context.Context, path string, workers int, log logging.Logger) *loaded {
	if path == "" {
		exitWithError(ExitError, "--bibtex is required")
	}
	l, err := loadBibliography(ctx, path, workers, log)
	if err != nil {
		var pe *bib.ParseError
		switch {
		case errors.As(err, &pe):
			exitWithError(ExitDataError, "%v", pe)
		case errors.Is(err, context.Canceled):
			exitWithError(ExitError, "interrupted")
		default:
			exitWithError(ExitDataError, "reading bibliography: %v", err)
		}
	}
	return l
}

// mustOpenDatabase opens the SQLite cache, creating its directory. Exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(path string) *storage.DB {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		exitWithError(ExitError, "creating cache directory: %v", err)
	}
	db, err := storage.OpenDB(path)
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// readOptionalFile returns the content of path, or "" when path is empty.
func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(config.ExpandTilde(path))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
