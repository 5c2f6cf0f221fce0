package cli

import (
	"fmt"
	"os"
	"slices"

	"github.com/giannimassi/ehrtok/internal/config"
	"github.com/giannimassi/ehrtok/internal/prepare"
	"github.com/giannimassi/ehrtok/internal/tokenize"
	"github.com/giannimassi/ehrtok/internal/vocab"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	var fix bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and data layout",
		Long:  "Run diagnostic checks on the configuration, data root and vocabulary, and optionally fix issues.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			p := printer{w: cmd.OutOrStdout()}
			failed := 0

			root := cfg.DataRoot()
			fmt.Fprintf(cmd.OutOrStdout(), "Data root: %s\n", root)
			if _, err := os.Stat(root); err == nil {
				dirs, _ := prepare.Discover(root)
				p.ok("data root exists with %d provider directories", len(dirs))
			} else if fix {
				if err := os.MkdirAll(root, 0755); err != nil {
					return err
				}
				p.fixed("created data root")
			} else {
				p.fail("data root missing (run with --fix to create it)")
				failed++
			}

			if slices.Contains(cfg.Columns.Sort, cfg.Columns.Timestamp) {
				p.ok("timestamp column %s is a sort column", cfg.Columns.Timestamp)
			} else {
				p.fail("timestamp column %s is not among sort columns %v", cfg.Columns.Timestamp, cfg.Columns.Sort)
				failed++
			}

			if cfg.SessionGapMinutes > cfg.ShiftGapMinutes {
				p.warn("session gap %gm exceeds shift gap %gm", cfg.SessionGapMinutes, cfg.ShiftGapMinutes)
			} else {
				p.ok("session gap %gm within shift gap %gm", cfg.SessionGapMinutes, cfg.ShiftGapMinutes)
			}

			edges, err := config.Edges(cfg.TimestampBins)
			switch {
			case err != nil:
				p.fail("bucket edges: %v", err)
				failed++
			case len(edges) == 0 && cfg.Tokenize:
				p.fail("tokenization needs bucket edges")
				failed++
			case len(edges) == 0:
				p.warn("no bucket edges configured")
			default:
				p.ok("%d bucket edges", len(edges))
			}

			if cfg.Tokenize {
				ncols := len(cfg.Columns.Tokenized())
				if cfg.MaxLength > 0 && tokenize.ChunkSize(cfg.MaxLength, ncols) < 1 {
					p.fail("max_length %d is smaller than %d tokenized columns", cfg.MaxLength, ncols)
					failed++
				}
				if v, err := vocab.Load(vocabPath(cfg)); err != nil {
					p.fail("vocabulary: %v (run `ehrtok vocab build`)", err)
					failed++
				} else {
					p.ok("vocabulary with %d tokens", v.Len())
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d checks failed", failed)
			}
			p.ok("All checks passed")
			return nil
		},
	}

	cmd.Flags().BoolVar(&fix, "fix", false, "Attempt to auto-fix detected issues")

	return cmd
}
