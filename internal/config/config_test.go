package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/giannimassi/ehrtok/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ehrtok.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "access_log.csv", cfg.LogName)
	assert.Equal(t, "cache", cfg.CacheName)
	assert.Equal(t, 4.0, cfg.SessionGapMinutes)
	assert.Equal(t, 300.0, cfg.ShiftGapMinutes)
	assert.Equal(t, "PAT_ID", cfg.Columns.User)
	assert.Equal(t, []string{"ACCESS_TIME", "ACCESS_INSTANT"}, cfg.Columns.Sort)
	assert.Equal(t, []string{"METRIC_NAME"}, cfg.Columns.EventTypes)
	assert.Equal(t, 20, cfg.TimestampBins.Bins)
	assert.True(t, cfg.Tokenize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
path_prefixes: [/data, /scratch]
audit_log_path: providers
audit_log_file: metrics.csv
session_gap_minutes: 2.5
columns:
  user: USER_ID
  timestamp: TS
  sort: [TS, SEQ]
  event_types: [ACTION, REPORT]
timestamp_bins:
  edges: [0.5, 0, 1, 2, 4]
max_length: 128
tokenize: false
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"/data", "/scratch"}, cfg.PathPrefixes)
	assert.Equal(t, "providers", cfg.AuditLogPath)
	assert.Equal(t, "metrics.csv", cfg.LogName)
	assert.Equal(t, 2.5, cfg.SessionGapMinutes)
	assert.Equal(t, 300.0, cfg.ShiftGapMinutes, "unset keys keep defaults")
	assert.Equal(t, "USER_ID", cfg.Columns.User)
	assert.Equal(t, []string{"ACTION", "REPORT"}, cfg.Columns.EventTypes)
	assert.Equal(t, []float64{0.5, 0, 1, 2, 4}, cfg.TimestampBins.Edges)
	assert.Equal(t, 128, cfg.MaxLength)
	assert.False(t, cfg.Tokenize)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "max_length: 64\n")
	t.Setenv("EHRTOK_MAX_LENGTH", "256")
	t.Setenv("EHRTOK_LOGGING_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.MaxLength)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadInvalid(t *testing.T) {
	path := writeConfig(t, "train_split: 0.9\nval_split: 0.3\n")
	_, err := Load(path)
	assert.Error(t, err)

	path = writeConfig(t, "max_length: [not, a, number]\n")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.Config)
		wantErr bool
	}{
		{"defaults", func(*model.Config) {}, false},
		{"negative gap", func(c *model.Config) { c.SessionGapMinutes = -1 }, true},
		{"negative max length", func(c *model.Config) { c.MaxLength = -3 }, true},
		{"long delimiter", func(c *model.Config) { c.Delimiter = ";;" }, true},
		{"escaped tab", func(c *model.Config) { c.Delimiter = `\t` }, false},
		{"splits over one", func(c *model.Config) { c.TrainSplit, c.ValSplit = 0.7, 0.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := model.DefaultConfig()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEdges(t *testing.T) {
	edges, err := Edges(model.TimestampBins{Edges: []float64{1, 0, 2, 5}, Bins: 20})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 2, 5}, edges, "explicit edges win")

	edges, err = Edges(model.TimestampBins{Min: 0, Max: 10, Bins: 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 0, 5, 10}, edges)

	edges, err = Edges(model.TimestampBins{})
	require.NoError(t, err)
	assert.Nil(t, edges)

	_, err = Edges(model.TimestampBins{Edges: []float64{1, 3, 2}})
	assert.Error(t, err)
}

func TestDelimiter(t *testing.T) {
	cfg := model.DefaultConfig()
	assert.Equal(t, ',', Delimiter(&cfg))
	cfg.Delimiter = `\t`
	assert.Equal(t, '\t', Delimiter(&cfg))
	cfg.Delimiter = "|"
	assert.Equal(t, '|', Delimiter(&cfg))
	cfg.Delimiter = ""
	assert.Equal(t, ',', Delimiter(&cfg))
}
