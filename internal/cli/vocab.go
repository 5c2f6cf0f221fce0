package cli

import (
	"github.com/giannimassi/ehrtok/internal/prepare"
	"github.com/spf13/cobra"
)

func newVocabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Manage the token vocabulary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newVocabBuildCmd())
	return cmd
}

func newVocabBuildCmd() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the vocabulary from provider logs",
		Long:  "Scan every provider log, prepare its sessions and write a vocabulary covering every user index, time bucket and event value seen.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, err := setup(cmd)
			if err != nil {
				return err
			}
			v, err := prepare.BuildVocab(ctx, cfg)
			if err != nil {
				return err
			}
			if out == "" {
				out = vocabPath(cfg)
			}
			if err := v.Save(out); err != nil {
				return err
			}
			printer{w: cmd.OutOrStdout()}.ok("vocabulary of %d tokens written to %s", v.Len(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Output path (default from config)")

	return cmd
}
