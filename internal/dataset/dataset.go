// Package dataset turns one provider's audit log into token sequences,
// loading from the provider's cache when one exists.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"slices"

	"github.com/giannimassi/ehrtok/internal/bucket"
	"github.com/giannimassi/ehrtok/internal/cache"
	"github.com/giannimassi/ehrtok/internal/config"
	"github.com/giannimassi/ehrtok/internal/logging"
	"github.com/giannimassi/ehrtok/internal/parser"
	"github.com/giannimassi/ehrtok/internal/tokenize"
	"github.com/giannimassi/ehrtok/pkg/model"
	"github.com/rs/zerolog"
)

// State is the position of a Dataset in its load lifecycle.
type State int

const (
	Unloaded State = iota
	LoadingFromLog
	LoadingFromCache
	Ready
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case LoadingFromLog:
		return "loading-from-log"
	case LoadingFromCache:
		return "loading-from-cache"
	case Ready:
		return "ready"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// LoadLevel records how much of a Ready dataset is in memory.
type LoadLevel int

const (
	LoadNone LoadLevel = iota
	LoadCountOnly
	LoadFull
)

var (
	// ErrTokenized is returned when asking a tokenized dataset for sessions.
	ErrTokenized = errors.New("dataset holds token sequences, not sessions")
	// ErrNotTokenized is returned when asking an untokenized dataset for sequences.
	ErrNotTokenized = errors.New("dataset holds sessions, not token sequences")
)

// ConfigError reports an invalid dataset configuration. It is returned
// before any file is touched.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid dataset configuration: " + e.Reason
}

// Options configures how a provider's log is read and prepared.
type Options struct {
	LogName   string
	CacheName string // empty disables caching
	Delimiter rune

	Columns model.Columns

	ShiftGap   float64 // seconds
	SessionGap float64 // seconds

	Edges     []float64
	MaxLength int
	Tokenize  bool
}

// OptionsFromConfig derives dataset options from the process configuration.
func OptionsFromConfig(cfg *model.Config) (Options, error) {
	edges, err := config.Edges(cfg.TimestampBins)
	if err != nil {
		return Options{}, fmt.Errorf("timestamp bins: %w", err)
	}
	return Options{
		LogName:    cfg.LogName,
		CacheName:  cfg.CacheName,
		Delimiter:  config.Delimiter(cfg),
		Columns:    cfg.Columns,
		ShiftGap:   cfg.ShiftGapMinutes * 60,
		SessionGap: cfg.SessionGapMinutes * 60,
		Edges:      edges,
		MaxLength:  cfg.MaxLength,
		Tokenize:   cfg.Tokenize,
	}, nil
}

// ParserOptions returns the log reader settings for these options.
func (o Options) ParserOptions() parser.Options {
	return parser.Options{
		UserColumn:      o.Columns.User,
		TimestampColumn: o.Columns.Timestamp,
		SortColumns:     o.Columns.Sort,
		EventColumns:    o.Columns.EventTypes,
		Delimiter:       o.Delimiter,
	}
}

// Dataset is one provider's prepared data.
type Dataset struct {
	root string
	opts Options
	tok  *tokenize.Tokenizer

	state    State
	level    LoadLevel
	count    int
	seqs     []model.Sequence
	sessions []model.Session
	stats    Stats
}

// New validates opts and returns an unloaded Dataset for the provider
// directory root. vocab may be nil when opts.Tokenize is false.
func New(root string, opts Options, vocab tokenize.Vocabulary) (*Dataset, error) {
	if !slices.Contains(opts.Columns.Sort, opts.Columns.Timestamp) {
		return nil, &ConfigError{Reason: fmt.Sprintf("timestamp column %q is not a sort column", opts.Columns.Timestamp)}
	}
	if opts.LogName == "" {
		return nil, &ConfigError{Reason: "log file name is empty"}
	}
	if len(opts.Edges) > 0 {
		if err := bucket.Validate(opts.Edges); err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
	}

	d := &Dataset{root: root, opts: opts}
	if !opts.Tokenize {
		return d, nil
	}
	if len(opts.Edges) == 0 {
		return nil, &ConfigError{Reason: "tokenization requires bucket edges"}
	}
	if vocab == nil {
		return nil, &ConfigError{Reason: "tokenization requires a vocabulary"}
	}
	tok, err := tokenize.New(vocab, opts.Columns.Tokenized(), opts.MaxLength)
	if err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	d.tok = tok
	return d, nil
}

// Provider returns the provider identifier, the base name of its directory.
func (d *Dataset) Provider() string { return filepath.Base(d.root) }

// Root returns the provider directory.
func (d *Dataset) Root() string { return d.root }

// LogPath returns the provider's audit log path.
func (d *Dataset) LogPath() string { return filepath.Join(d.root, d.opts.LogName) }

// CacheDir returns the provider's cache directory, or "" when caching is off.
func (d *Dataset) CacheDir() string {
	if d.opts.CacheName == "" {
		return ""
	}
	return filepath.Join(d.root, d.opts.CacheName)
}

// State returns the current lifecycle state.
func (d *Dataset) State() State { return d.state }

// Level returns how much of the data is in memory.
func (d *Dataset) Level() LoadLevel { return d.level }

// Stats returns counters from the last pipeline run. They are zero when the
// dataset was loaded from cache.
func (d *Dataset) Stats() Stats { return d.stats }

// Cached reports whether a cache directory exists for this provider.
func (d *Dataset) Cached() bool {
	dir := d.CacheDir()
	return dir != "" && cache.Exists(dir)
}

// Load makes the dataset Ready. An existing cache supplies the count only and
// sequences are read on first access. Otherwise the log is run through the
// full pipeline and the result persisted when caching is on. Loading a Ready
// dataset is a no-op.
func (d *Dataset) Load(ctx context.Context) error {
	if d.state == Ready {
		return nil
	}
	lg := zerolog.Ctx(ctx).With().Str(logging.FieldProvider, d.Provider()).Logger()
	if d.opts.SessionGap > d.opts.ShiftGap {
		lg.Warn().
			Float64("session_gap_seconds", d.opts.SessionGap).
			Float64("shift_gap_seconds", d.opts.ShiftGap).
			Msg("session gap exceeds shift gap; every shift will be a single session")
	}

	var err error
	if d.Cached() {
		d.state = LoadingFromCache
		err = d.loadCount()
	} else {
		d.state = LoadingFromLog
		err = d.loadLog(ctx)
	}
	if err != nil {
		d.state = Unloaded
		return err
	}
	d.state = Ready
	lg.Debug().Int(logging.FieldSessions, d.count).Msg("dataset ready")
	return nil
}

func (d *Dataset) loadCount() error {
	count, err := cache.LoadCount(d.CacheDir())
	if err != nil {
		return err
	}
	d.count = count
	d.level = LoadCountOnly
	return nil
}

func (d *Dataset) loadLog(ctx context.Context) error {
	events, err := parser.ReadLog(d.LogPath(), d.opts.ParserOptions())
	if err != nil {
		return err
	}

	sessions, stats, err := PrepareSessions(ctx, events, d.opts.ShiftGap, d.opts.SessionGap, d.opts.Edges)
	if err != nil {
		return fmt.Errorf("%s: %w", d.Provider(), err)
	}

	if d.tok == nil {
		d.stats = stats
		d.sessions = sessions
		d.count = len(sessions)
		d.level = LoadFull
		if dir := d.CacheDir(); dir != "" {
			return cache.SaveSessions(dir, d.count, sessions)
		}
		return nil
	}

	seqs := make([]model.Sequence, 0, len(sessions))
	for i, s := range sessions {
		seq, err := d.tok.Sequence(s)
		if err != nil {
			return fmt.Errorf("%s: session %d: %w", d.Provider(), i, err)
		}
		for _, c := range seq {
			stats.Tokens += len(c)
		}
		seqs = append(seqs, seq)
	}
	d.stats = stats
	d.seqs = seqs
	d.count = len(seqs)
	d.level = LoadFull
	if dir := d.CacheDir(); dir != "" {
		return cache.Save(dir, d.count, seqs)
	}
	return nil
}

func (d *Dataset) ensureFull(ctx context.Context) error {
	if err := d.Load(ctx); err != nil {
		return err
	}
	if d.level == LoadFull {
		return nil
	}
	if d.tok == nil {
		sessions, err := cache.LoadSessions(d.CacheDir())
		if err != nil {
			return err
		}
		d.sessions = sessions
	} else {
		seqs, err := cache.LoadSequences(d.CacheDir())
		if err != nil {
			return err
		}
		d.seqs = seqs
	}
	d.level = LoadFull
	return nil
}

// Len returns the number of records. It is 0 until the dataset is loaded.
func (d *Dataset) Len() int { return d.count }

// Sequences returns every token sequence, reading the cache on first use.
func (d *Dataset) Sequences() ([]model.Sequence, error) {
	if d.tok == nil {
		return nil, ErrNotTokenized
	}
	if err := d.ensureFull(context.Background()); err != nil {
		return nil, err
	}
	return d.seqs, nil
}

// Sequence returns the i-th token sequence.
func (d *Dataset) Sequence(i int) (model.Sequence, error) {
	seqs, err := d.Sequences()
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(seqs) {
		return nil, fmt.Errorf("sequence index %d out of range [0, %d)", i, len(seqs))
	}
	return seqs[i], nil
}

// Sessions returns the prepared sessions of an untokenized dataset.
func (d *Dataset) Sessions() ([]model.Session, error) {
	if d.tok != nil {
		return nil, ErrTokenized
	}
	if err := d.ensureFull(context.Background()); err != nil {
		return nil, err
	}
	return d.sessions, nil
}

// All iterates over the token sequences. A load failure is yielded once as
// the error and ends the iteration.
func (d *Dataset) All() iter.Seq2[model.Sequence, error] {
	return func(yield func(model.Sequence, error) bool) {
		seqs, err := d.Sequences()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, s := range seqs {
			if !yield(s, nil) {
				return
			}
		}
	}
}

// Invalidate removes the provider's cache and resets the dataset so the next
// Load recomputes from the log.
func (d *Dataset) Invalidate() error {
	if dir := d.CacheDir(); dir != "" {
		if err := cache.Invalidate(dir); err != nil {
			return err
		}
	}
	d.state = Unloaded
	d.level = LoadNone
	d.count = 0
	d.seqs = nil
	d.sessions = nil
	d.stats = Stats{}
	return nil
}
