package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/giannimassi/ehrtok/internal/cache"
	"github.com/giannimassi/ehrtok/internal/prepare"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show preparation status",
		Long:  "Display the last preparation run and the cache state of every provider.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup(cmd)
			if err != nil {
				return err
			}
			p := printer{w: cmd.OutOrStdout()}
			root := cfg.DataRoot()
			p.info("data_root=%s", root)

			status, err := prepare.ReadStatus(root)
			switch {
			case errors.Is(err, os.ErrNotExist):
				p.warn("no preparation run recorded")
			case err != nil:
				return err
			default:
				p.info("last_run=%s finished=%s", status.RunID, status.FinishedAt.Format(time.RFC3339))
				p.info("prepared=%d cached=%d skipped=%d sessions=%d tokens=%d",
					status.Prepared, status.Cached, status.Skipped, status.Sessions, status.Tokens)
			}

			dirs, err := prepare.Discover(root)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(dirs))
			for _, dir := range dirs {
				rows = append(rows, providerRow(dir, cfg.LogName, cfg.CacheName))
			}
			p.table([]string{"PROVIDER", "LOG", "CACHE", "RECORDS"}, rows)
			return nil
		},
	}
}

func providerRow(dir, logName, cacheName string) []string {
	logState := "missing"
	if prepare.UsableLog(filepath.Join(dir, logName)) {
		logState = "ok"
	} else if _, err := os.Stat(filepath.Join(dir, logName)); err == nil {
		logState = "empty"
	}

	cacheDir := filepath.Join(dir, cacheName)
	cacheState, records := "none", "-"
	if cache.Exists(cacheDir) {
		cacheState = "ready"
		if kind, err := cache.StoredKind(cacheDir); err != nil {
			cacheState = "corrupt"
		} else if kind == cache.KindSessions {
			cacheState = "untokenized"
		}
		if n, err := cache.LoadCount(cacheDir); err == nil {
			records = strconv.Itoa(n)
		}
	}
	return []string{filepath.Base(dir), logState, cacheState, records}
}
