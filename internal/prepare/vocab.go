package prepare

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/giannimassi/ehrtok/internal/bucket"
	"github.com/giannimassi/ehrtok/internal/dataset"
	"github.com/giannimassi/ehrtok/internal/logging"
	"github.com/giannimassi/ehrtok/internal/parser"
	"github.com/giannimassi/ehrtok/internal/vocab"
	"github.com/giannimassi/ehrtok/pkg/model"
	"github.com/rs/zerolog"
)

// BuildVocab scans every provider log, prepares its sessions and returns a
// vocabulary covering every observed value plus every bucket the configured
// edges can produce.
func BuildVocab(ctx context.Context, cfg *model.Config) (*vocab.Vocab, error) {
	dsOpts, err := dataset.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if len(dsOpts.Edges) == 0 {
		return nil, errors.New("building a vocabulary requires bucket edges")
	}
	providers, err := Discover(cfg.DataRoot())
	if err != nil {
		return nil, err
	}

	lg := zerolog.Ctx(ctx)
	b := vocab.NewBuilder(cfg.Columns.Tokenized())
	b.Reserve(cfg.Columns.Timestamp, bucket.Count(dsOpts.Edges))
	for _, dir := range providers {
		logPath := filepath.Join(dir, dsOpts.LogName)
		if !UsableLog(logPath) {
			continue
		}
		events, err := parser.ReadLog(logPath, dsOpts.ParserOptions())
		if err != nil {
			return nil, err
		}
		sessions, _, err := dataset.PrepareSessions(ctx, events, dsOpts.ShiftGap, dsOpts.SessionGap, dsOpts.Edges)
		if err != nil {
			return nil, err
		}
		for _, s := range sessions {
			b.Observe(s)
		}
		lg.Debug().Str(logging.FieldProvider, filepath.Base(dir)).Int(logging.FieldSessions, len(sessions)).Msg("scanned provider")
	}
	return b.Build(), nil
}
