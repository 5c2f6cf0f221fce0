package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ehrtok",
		Short: "Turn EHR audit logs into token sequences",
		Long:  "Ehrtok reads per-provider EHR audit logs, segments them into shifts and sessions, buckets time deltas and caches fixed-vocabulary token sequences for sequence-model training.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "Config file (default ./ehrtok.yaml or ~/.config/ehrtok/ehrtok.yaml)")
	root.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "Log format (console, json)")

	root.AddCommand(
		newPrepareCmd(),
		newStatusCmd(),
		newInspectCmd(),
		newGraphCmd(),
		newSplitCmd(),
		newVocabCmd(),
		newSynthCmd(),
		newDoctorCmd(),
	)

	root.Version = Version
	root.SetVersionTemplate(fmt.Sprintf("ehrtok %s\n", Version))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
