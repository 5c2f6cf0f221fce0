package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/giannimassi/ehrtok/internal/config"
	"github.com/giannimassi/ehrtok/internal/dataset"
	"github.com/giannimassi/ehrtok/internal/logging"
	"github.com/giannimassi/ehrtok/internal/tokenize"
	"github.com/giannimassi/ehrtok/internal/vocab"
	"github.com/giannimassi/ehrtok/pkg/model"
	"github.com/spf13/cobra"
)

// setup loads the configuration and returns a context carrying the logger.
// --log-level and --log-format override the configured values.
func setup(cmd *cobra.Command) (*model.Config, context.Context, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if f, _ := cmd.Flags().GetString("log-format"); f != "" {
		cfg.Logging.Format = f
	}

	lg := logging.New(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return cfg, lg.WithContext(ctx), nil
}

// vocabPath resolves the vocabulary file; relative paths live under the data root.
func vocabPath(cfg *model.Config) string {
	if filepath.IsAbs(cfg.VocabPath) {
		return cfg.VocabPath
	}
	return filepath.Join(cfg.DataRoot(), cfg.VocabPath)
}

// loadVocab reads the vocabulary when tokenization is on. It returns a nil
// interface otherwise so datasets run untokenized.
func loadVocab(cfg *model.Config) (tokenize.Vocabulary, *vocab.Vocab, error) {
	if !cfg.Tokenize {
		return nil, nil, nil
	}
	v, err := vocab.Load(vocabPath(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("load vocabulary (run `ehrtok vocab build` first): %w", err)
	}
	return v, v, nil
}

// providerDir resolves a provider id or path to its directory.
func providerDir(cfg *model.Config, provider string) string {
	if info, err := os.Stat(provider); err == nil && info.IsDir() && filepath.Base(provider) != provider {
		return provider
	}
	return filepath.Join(cfg.DataRoot(), provider)
}

// openDataset builds and loads the dataset of one provider.
func openDataset(ctx context.Context, cfg *model.Config, provider string) (*dataset.Dataset, *vocab.Vocab, error) {
	voc, v, err := loadVocab(cfg)
	if err != nil {
		return nil, nil, err
	}
	opts, err := dataset.OptionsFromConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	d, err := dataset.New(providerDir(cfg, provider), opts, voc)
	if err != nil {
		return nil, nil, err
	}
	if err := d.Load(ctx); err != nil {
		return nil, nil, err
	}
	return d, v, nil
}
