package prepare

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/giannimassi/ehrtok/internal/cache"
	"github.com/giannimassi/ehrtok/internal/metrics"
	"github.com/giannimassi/ehrtok/internal/synth"
	"github.com/giannimassi/ehrtok/internal/vocab"
	"github.com/giannimassi/ehrtok/pkg/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestProviders(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.PathPrefixes = []string{t.TempDir()}
	cfg.AuditLogPath = "audit_logs"
	cfg.Workers = 2
	cfg.MaxLength = 30

	opts := synth.DefaultOptions()
	opts.EventsPerProvider = 120
	_, err := synth.Generate(cfg.DataRoot(), opts)
	require.NoError(t, err)

	// A provider with an empty log and one with no log at all.
	empty := filepath.Join(cfg.DataRoot(), "provider-empty")
	require.NoError(t, os.MkdirAll(empty, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(empty, cfg.LogName), nil, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.DataRoot(), "provider-nolog"), 0755))
	return &cfg
}

func TestRun(t *testing.T) {
	cfg := setupTestProviders(t)
	ctx := context.Background()

	v, err := BuildVocab(ctx, cfg)
	require.NoError(t, err)

	m := metrics.New()
	cfg.MetricsFile = filepath.Join(t.TempDir(), "ehrtok.prom")
	result, err := Run(ctx, cfg, v, Options{Metrics: m})
	require.NoError(t, err)

	assert.Equal(t, 5, result.Providers)
	assert.Equal(t, 3, result.Prepared)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 0, result.Cached)
	assert.Equal(t, 360, result.Events)
	assert.Positive(t, result.Sessions)
	assert.Positive(t, result.Tokens)
	assert.NotEmpty(t, result.RunID)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.Providers.WithLabelValues(metrics.ResultPrepared)))
	assert.Equal(t, 360.0, testutil.ToFloat64(m.Events))
	assert.FileExists(t, cfg.MetricsFile)

	status, err := ReadStatus(cfg.DataRoot())
	require.NoError(t, err)
	assert.Equal(t, result.RunID, status.RunID)
	assert.Equal(t, result.Sessions, status.Sessions)

	dirs, err := Discover(cfg.DataRoot())
	require.NoError(t, err)
	var cached int
	for _, dir := range dirs {
		if cache.Exists(filepath.Join(dir, cfg.CacheName)) {
			cached++
		}
	}
	assert.Equal(t, 3, cached)
}

func TestRunSkipsCachedUnlessForced(t *testing.T) {
	cfg := setupTestProviders(t)
	ctx := context.Background()
	v, err := BuildVocab(ctx, cfg)
	require.NoError(t, err)

	first, err := Run(ctx, cfg, v, Options{})
	require.NoError(t, err)

	second, err := Run(ctx, cfg, v, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, second.Cached)
	assert.Equal(t, 0, second.Prepared)
	assert.NotEqual(t, first.RunID, second.RunID)

	forced, err := Run(ctx, cfg, v, Options{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 3, forced.Prepared)
	assert.Equal(t, first.Sessions, forced.Sessions)
	assert.Equal(t, first.Tokens, forced.Tokens)
}

func TestRunSingleWorkerMatchesParallel(t *testing.T) {
	cfg := setupTestProviders(t)
	ctx := context.Background()
	v, err := BuildVocab(ctx, cfg)
	require.NoError(t, err)

	_, err = Run(ctx, cfg, v, Options{})
	require.NoError(t, err)
	parallel, err := Collect(ctx, cfg, v)
	require.NoError(t, err)

	cfg.Workers = 1
	_, err = Run(ctx, cfg, v, Options{Force: true})
	require.NoError(t, err)
	serial, err := Collect(ctx, cfg, v)
	require.NoError(t, err)

	require.Len(t, serial, len(parallel))
	for i := range serial {
		a, err := parallel[i].Sequences()
		require.NoError(t, err)
		b, err := serial[i].Sequences()
		require.NoError(t, err)
		assert.Equal(t, a, b)
	}
}

func TestRunPropagatesUnknownToken(t *testing.T) {
	cfg := setupTestProviders(t)

	_, err := Run(context.Background(), cfg, vocab.New(), Options{})
	var unknown *vocab.UnknownTokenError
	assert.ErrorAs(t, err, &unknown)

	_, statErr := os.Stat(filepath.Join(cfg.DataRoot(), StatusFile))
	assert.True(t, os.IsNotExist(statErr), "no status for a failed run")
}

func TestRunUntokenized(t *testing.T) {
	cfg := setupTestProviders(t)
	cfg.Tokenize = false

	result, err := Run(context.Background(), cfg, nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Prepared)
	assert.Zero(t, result.Tokens)

	datasets, err := Collect(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, datasets, 3)
	sessions, err := datasets[0].Sessions()
	require.NoError(t, err)
	assert.Len(t, sessions, datasets[0].Len())
}

func TestCollect(t *testing.T) {
	cfg := setupTestProviders(t)
	ctx := context.Background()
	v, err := BuildVocab(ctx, cfg)
	require.NoError(t, err)

	datasets, err := Collect(ctx, cfg, v)
	require.NoError(t, err)
	require.Len(t, datasets, 3, "empty and missing logs are left out")
	for _, d := range datasets {
		assert.NotZero(t, d.Len())
		assert.True(t, d.Cached())
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b", "a", ".hidden"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, StatusFile), []byte("{}"), 0644))

	dirs, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "a"), filepath.Join(root, "b")}, dirs)

	dirs, err = Discover(filepath.Join(root, "missing"))
	require.NoError(t, err)
	assert.Empty(t, dirs)
}

func TestBuildVocabCoversBuckets(t *testing.T) {
	cfg := setupTestProviders(t)
	v, err := BuildVocab(context.Background(), cfg)
	require.NoError(t, err)

	for b := 0; b <= cfg.TimestampBins.Bins; b++ {
		_, err := v.FieldToToken(cfg.Columns.Timestamp, strconv.Itoa(b))
		assert.NoError(t, err, "bucket %d", b)
	}
	_, err = v.FieldToToken(cfg.Columns.User, "0")
	assert.NoError(t, err)

	cfg.TimestampBins = model.TimestampBins{}
	_, err = BuildVocab(context.Background(), cfg)
	assert.Error(t, err)
}
