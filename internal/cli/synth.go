package cli

import (
	"github.com/giannimassi/ehrtok/internal/config"
	"github.com/giannimassi/ehrtok/internal/synth"
	"github.com/spf13/cobra"
)

func newSynthCmd() *cobra.Command {
	opts := synth.DefaultOptions()

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate synthetic provider logs",
		Long:  "Write fake audit logs for a number of providers under the data root, using the configured column names.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			opts.Columns = cfg.Columns
			opts.LogName = cfg.LogName
			opts.Delimiter = config.Delimiter(cfg)

			dirs, err := synth.Generate(cfg.DataRoot(), opts)
			if err != nil {
				return err
			}
			printer{w: cmd.OutOrStdout()}.ok("generated %d providers with %d events each under %s",
				len(dirs), opts.EventsPerProvider, cfg.DataRoot())
			return nil
		},
	}

	cmd.Flags().IntVar(&opts.Providers, "providers", opts.Providers, "Number of providers")
	cmd.Flags().IntVar(&opts.EventsPerProvider, "events", opts.EventsPerProvider, "Events per provider")
	cmd.Flags().IntVar(&opts.Patients, "patients", opts.Patients, "Patient pool per provider")
	cmd.Flags().Int64Var(&opts.Seed, "seed", opts.Seed, "Random seed (0 for random)")
	cmd.Flags().BoolVar(&opts.DateTimestamps, "dates", false, "Write timestamps as date-time strings instead of epoch seconds")

	return cmd
}
