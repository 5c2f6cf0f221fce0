package cli

import (
	"path/filepath"

	"github.com/giannimassi/ehrtok/internal/prepare"
	"github.com/spf13/cobra"
)

func newSplitCmd() *cobra.Command {
	var (
		out  string
		seed int64
	)

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Assign providers to train, validation and test sets",
		Long:  "Collect every provider with at least one prepared record and write a seeded train/val/test manifest using the configured split fractions.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, err := setup(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}
			voc, _, err := loadVocab(cfg)
			if err != nil {
				return err
			}
			datasets, err := prepare.Collect(ctx, cfg, voc)
			if err != nil {
				return err
			}
			ids := make([]string, len(datasets))
			for i, d := range datasets {
				ids[i] = d.Provider()
			}

			m, err := prepare.Split(ids, cfg.TrainSplit, cfg.ValSplit, cfg.Seed)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(cfg.DataRoot(), "splits.json")
			}
			if err := prepare.WriteManifest(out, m); err != nil {
				return err
			}
			printer{w: cmd.OutOrStdout()}.ok("train=%d val=%d test=%d written to %s", len(m.Train), len(m.Val), len(m.Test), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Manifest path (default <data_root>/splits.json)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Shuffle seed (default from config)")

	return cmd
}
