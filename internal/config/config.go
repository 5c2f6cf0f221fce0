// Package config loads ehrtok configuration from a YAML file, environment
// variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/giannimassi/ehrtok/internal/bucket"
	"github.com/giannimassi/ehrtok/pkg/model"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. EHRTOK_MAX_LENGTH.
const EnvPrefix = "EHRTOK"

// Load reads configuration from configPath, or from ehrtok.yaml in the
// working directory or ~/.config/ehrtok when configPath is empty. A missing
// default file is not an error.
func Load(configPath string) (*model.Config, error) {
	v := viper.New()

	def := model.DefaultConfig()
	v.SetDefault("path_prefixes", def.PathPrefixes)
	v.SetDefault("audit_log_path", def.AuditLogPath)
	v.SetDefault("audit_log_file", def.LogName)
	v.SetDefault("audit_log_cache", def.CacheName)
	v.SetDefault("delimiter", def.Delimiter)
	v.SetDefault("session_gap_minutes", def.SessionGapMinutes)
	v.SetDefault("shift_gap_minutes", def.ShiftGapMinutes)
	v.SetDefault("columns.user", def.Columns.User)
	v.SetDefault("columns.timestamp", def.Columns.Timestamp)
	v.SetDefault("columns.sort", def.Columns.Sort)
	v.SetDefault("columns.event_types", def.Columns.EventTypes)
	v.SetDefault("timestamp_bins.edges", def.TimestampBins.Edges)
	v.SetDefault("timestamp_bins.min", def.TimestampBins.Min)
	v.SetDefault("timestamp_bins.max", def.TimestampBins.Max)
	v.SetDefault("timestamp_bins.bins", def.TimestampBins.Bins)
	v.SetDefault("vocab_path", def.VocabPath)
	v.SetDefault("max_length", def.MaxLength)
	v.SetDefault("tokenize", def.Tokenize)
	v.SetDefault("workers", def.Workers)
	v.SetDefault("train_split", def.TrainSplit)
	v.SetDefault("val_split", def.ValSplit)
	v.SetDefault("seed", def.Seed)
	v.SetDefault("metrics_file", def.MetricsFile)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("ehrtok")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/ehrtok")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg model.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail deep inside a run.
func Validate(cfg *model.Config) error {
	if cfg.SessionGapMinutes < 0 || cfg.ShiftGapMinutes < 0 {
		return fmt.Errorf("gap thresholds must not be negative")
	}
	if cfg.MaxLength < 0 {
		return fmt.Errorf("max_length must not be negative, got %d", cfg.MaxLength)
	}
	if cfg.Delimiter != `\t` && len([]rune(cfg.Delimiter)) > 1 {
		return fmt.Errorf("delimiter must be a single character, got %q", cfg.Delimiter)
	}
	if cfg.TrainSplit < 0 || cfg.ValSplit < 0 || cfg.TrainSplit+cfg.ValSplit > 1 {
		return fmt.Errorf("train_split %g and val_split %g must be non-negative and sum to at most 1",
			cfg.TrainSplit, cfg.ValSplit)
	}
	return nil
}

// Edges resolves the configured bucket edges. An explicit edges list wins
// over the {min, max, bins} range. It returns nil when neither is set.
func Edges(bins model.TimestampBins) ([]float64, error) {
	if len(bins.Edges) > 0 {
		if err := bucket.Validate(bins.Edges); err != nil {
			return nil, err
		}
		return bins.Edges, nil
	}
	if bins.Bins <= 0 {
		return nil, nil
	}
	return bucket.Edges(bins.Min, bins.Max, bins.Bins)
}

// Delimiter returns the configured field delimiter as a rune, defaulting to a
// comma.
func Delimiter(cfg *model.Config) rune {
	if cfg.Delimiter == "" {
		return ','
	}
	if cfg.Delimiter == `\t` {
		return '\t'
	}
	return []rune(cfg.Delimiter)[0]
}
