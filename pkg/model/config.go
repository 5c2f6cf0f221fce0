package model

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config holds runtime configuration for ehrtok.
type Config struct {
	PathPrefixes []string `mapstructure:"path_prefixes"` // Candidate roots, first existing one wins
	AuditLogPath string   `mapstructure:"audit_log_path"` // Directory of provider directories, relative to the prefix
	LogName      string   `mapstructure:"audit_log_file"` // Log file name inside each provider directory
	CacheName    string   `mapstructure:"audit_log_cache"` // Cache sub-path inside each provider directory
	Delimiter    string   `mapstructure:"delimiter"`

	SessionGapMinutes float64 `mapstructure:"session_gap_minutes"`
	ShiftGapMinutes   float64 `mapstructure:"shift_gap_minutes"`

	Columns       Columns       `mapstructure:"columns"`
	TimestampBins TimestampBins `mapstructure:"timestamp_bins"`

	VocabPath string `mapstructure:"vocab_path"`
	MaxLength int    `mapstructure:"max_length"` // 0 disables chunking
	Tokenize  bool   `mapstructure:"tokenize"`
	Workers   int    `mapstructure:"workers"` // <= 0 means one per CPU

	TrainSplit float64 `mapstructure:"train_split"`
	ValSplit   float64 `mapstructure:"val_split"`
	Seed       int64   `mapstructure:"seed"`

	MetricsFile string  `mapstructure:"metrics_file"`
	Logging     Logging `mapstructure:"logging"`
}

// Columns names the log columns the pipeline reads.
type Columns struct {
	User       string   `mapstructure:"user"`
	Timestamp  string   `mapstructure:"timestamp"`
	Sort       []string `mapstructure:"sort"`
	EventTypes []string `mapstructure:"event_types"`
}

// Tokenized returns the tokenized column order: user, timestamp, then event types.
func (c Columns) Tokenized() []string {
	cols := make([]string, 0, 2+len(c.EventTypes))
	cols = append(cols, c.User, c.Timestamp)
	return append(cols, c.EventTypes...)
}

// TimestampBins describes the bucket edges either explicitly or as an evenly
// spaced range over log-seconds.
type TimestampBins struct {
	Edges []float64 `mapstructure:"edges"`
	Min   float64   `mapstructure:"min"`
	Max   float64   `mapstructure:"max"`
	Bins  int       `mapstructure:"bins"`
}

// Logging configures the process logger.
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		PathPrefixes:      []string{home},
		AuditLogPath:      filepath.Join("data", "audit_logs"),
		LogName:           "access_log.csv",
		CacheName:         "cache",
		Delimiter:         ",",
		SessionGapMinutes: 4,
		ShiftGapMinutes:   300,
		Columns: Columns{
			User:       "PAT_ID",
			Timestamp:  "ACCESS_TIME",
			Sort:       []string{"ACCESS_TIME", "ACCESS_INSTANT"},
			EventTypes: []string{"METRIC_NAME"},
		},
		TimestampBins: TimestampBins{Min: 0, Max: 10, Bins: 20},
		VocabPath:     "vocab.yaml",
		Tokenize:      true,
		Workers:       runtime.NumCPU(),
		TrainSplit:    0.8,
		ValSplit:      0.1,
		Logging:       Logging{Level: "info", Format: "console"},
	}
}

// DataRoot resolves the provider root: the first existing prefix joined with
// AuditLogPath. With no existing prefix the path is used as given.
func (c Config) DataRoot() string {
	for _, prefix := range c.PathPrefixes {
		if prefix == "" {
			continue
		}
		if _, err := os.Stat(prefix); err == nil {
			return filepath.Join(prefix, c.AuditLogPath)
		}
	}
	return c.AuditLogPath
}
