// Package prepare runs the dataset pipeline over every provider under the
// data root.
package prepare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/giannimassi/ehrtok/internal/dataset"
	"github.com/giannimassi/ehrtok/internal/logging"
	"github.com/giannimassi/ehrtok/internal/metrics"
	"github.com/giannimassi/ehrtok/internal/tokenize"
	"github.com/giannimassi/ehrtok/pkg/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// StatusFile is written to the data root after every successful run.
const StatusFile = "prepare-status.json"

// Options tunes a preparation run.
type Options struct {
	Force   bool             // invalidate existing caches
	Metrics *metrics.Metrics // optional
}

// Result contains the outcome of a preparation run.
type Result struct {
	RunID      string    `json:"run_id"`
	DataRoot   string    `json:"data_root"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Workers    int       `json:"workers"`

	Providers int `json:"providers"`
	Prepared  int `json:"prepared"`
	Cached    int `json:"cached"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	Events   int `json:"events"`
	Sessions int `json:"sessions"`
	Tokens   int `json:"tokens"`
}

// Run prepares every provider under the configured data root. Providers
// without a usable log are skipped, providers with a cache are left alone
// unless opts.Force is set. The first provider error cancels the run.
func Run(ctx context.Context, cfg *model.Config, vocab tokenize.Vocabulary, opts Options) (*Result, error) {
	dsOpts, err := dataset.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	root := cfg.DataRoot()
	providers, err := Discover(root)
	if err != nil {
		return nil, fmt.Errorf("discover providers: %w", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	result := &Result{
		RunID:     uuid.NewString(),
		DataRoot:  root,
		StartedAt: time.Now().UTC(),
		Workers:   workers,
		Providers: len(providers),
	}

	lg := zerolog.Ctx(ctx).With().Str(logging.FieldRunID, result.RunID).Logger()
	lg.Info().Str(logging.FieldPath, root).Int("providers", len(providers)).Int(logging.FieldWorkers, workers).Msg("preparing providers")

	var mu sync.Mutex
	tally := func(outcome string, stats dataset.Stats) {
		mu.Lock()
		defer mu.Unlock()
		switch outcome {
		case metrics.ResultPrepared:
			result.Prepared++
		case metrics.ResultCached:
			result.Cached++
		case metrics.ResultSkipped:
			result.Skipped++
		case metrics.ResultFailed:
			result.Failed++
		}
		result.Events += stats.Events
		result.Sessions += stats.Sessions
		result.Tokens += stats.Tokens
		if m := opts.Metrics; m != nil {
			m.Providers.WithLabelValues(outcome).Inc()
			m.Events.Add(float64(stats.Events))
			m.Sessions.Add(float64(stats.Sessions))
			m.Tokens.Add(float64(stats.Tokens))
		}
	}

	g, gctx := errgroup.WithContext(lg.WithContext(ctx))
	g.SetLimit(workers)
	for _, dir := range providers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, stats, err := prepareProvider(gctx, dir, dsOpts, vocab, opts)
			tally(outcome, stats)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	result.FinishedAt = time.Now().UTC()
	if err := writeStatus(filepath.Join(root, StatusFile), result); err != nil {
		return result, fmt.Errorf("write %s: %w", StatusFile, err)
	}
	if cfg.MetricsFile != "" && opts.Metrics != nil {
		if err := opts.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			return result, fmt.Errorf("write metrics: %w", err)
		}
	}
	lg.Info().
		Int("prepared", result.Prepared).
		Int("cached", result.Cached).
		Int("skipped", result.Skipped).
		Int(logging.FieldSessions, result.Sessions).
		Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).
		Msg("preparation finished")
	return result, nil
}

func prepareProvider(ctx context.Context, dir string, dsOpts dataset.Options, vocab tokenize.Vocabulary, opts Options) (string, dataset.Stats, error) {
	lg := zerolog.Ctx(ctx).With().Str(logging.FieldProvider, filepath.Base(dir)).Logger()

	d, err := dataset.New(dir, dsOpts, vocab)
	if err != nil {
		return metrics.ResultFailed, dataset.Stats{}, err
	}
	if opts.Force {
		if err := d.Invalidate(); err != nil {
			return metrics.ResultFailed, dataset.Stats{}, err
		}
	} else if d.Cached() {
		lg.Debug().Msg("cache exists, skipping")
		return metrics.ResultCached, dataset.Stats{}, nil
	}
	if !UsableLog(d.LogPath()) {
		lg.Debug().Str(logging.FieldPath, d.LogPath()).Msg("no log to prepare")
		return metrics.ResultSkipped, dataset.Stats{}, nil
	}

	start := time.Now()
	if err := d.Load(lg.WithContext(ctx)); err != nil {
		lg.Error().Err(err).Msg("prepare failed")
		return metrics.ResultFailed, dataset.Stats{}, fmt.Errorf("provider %s: %w", d.Provider(), err)
	}
	if m := opts.Metrics; m != nil {
		m.Duration.Observe(time.Since(start).Seconds())
	}
	stats := d.Stats()
	lg.Info().
		Int(logging.FieldEvents, stats.Events).
		Int(logging.FieldShifts, stats.Shifts).
		Int(logging.FieldSessions, stats.Sessions).
		Int(logging.FieldTokens, stats.Tokens).
		Msg("provider prepared")
	return metrics.ResultPrepared, stats, nil
}

// Discover returns the provider directories under root, sorted by name.
// A missing root yields no providers.
func Discover(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && e.Name()[0] != '.' {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// UsableLog reports whether path is a regular, non-empty file.
func UsableLog(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// Collect loads every provider that has a cache or a usable log and returns
// the datasets holding at least one record.
func Collect(ctx context.Context, cfg *model.Config, vocab tokenize.Vocabulary) ([]*dataset.Dataset, error) {
	dsOpts, err := dataset.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	providers, err := Discover(cfg.DataRoot())
	if err != nil {
		return nil, err
	}
	var out []*dataset.Dataset
	for _, dir := range providers {
		d, err := dataset.New(dir, dsOpts, vocab)
		if err != nil {
			return nil, err
		}
		if !d.Cached() && !UsableLog(d.LogPath()) {
			continue
		}
		if err := d.Load(ctx); err != nil {
			return nil, err
		}
		if d.Len() != 0 {
			out = append(out, d)
		}
	}
	return out, nil
}

// atomicWriteFile writes data to a temp file then renames it into place.
func atomicWriteFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func writeStatus(path string, result *Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(path, append(data, '\n'))
}

// ReadStatus returns the status of the last successful run under root.
func ReadStatus(root string) (*Result, error) {
	data, err := os.ReadFile(filepath.Join(root, StatusFile))
	if err != nil {
		return nil, err
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", StatusFile, err)
	}
	return &r, nil
}
