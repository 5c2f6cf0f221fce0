package cli

import (
	"github.com/giannimassi/ehrtok/internal/metrics"
	"github.com/giannimassi/ehrtok/internal/prepare"
	"github.com/spf13/cobra"
)

func newPrepareCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Prepare token sequences for every provider",
		Long:  "Read each provider's audit log, segment it into shifts and sessions, tokenize and cache the result. Providers with an existing cache are skipped unless --force is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, err := setup(cmd)
			if err != nil {
				return err
			}
			voc, _, err := loadVocab(cfg)
			if err != nil {
				return err
			}

			result, err := prepare.Run(ctx, cfg, voc, prepare.Options{Force: force, Metrics: metrics.New()})
			if err != nil {
				return err
			}

			p := printer{w: cmd.OutOrStdout()}
			p.ok("prepared %d of %d providers (%d cached, %d skipped)",
				result.Prepared, result.Providers, result.Cached, result.Skipped)
			p.info("events=%d sessions=%d tokens=%d run_id=%s",
				result.Events, result.Sessions, result.Tokens, result.RunID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Invalidate existing caches and recompute")

	return cmd
}
