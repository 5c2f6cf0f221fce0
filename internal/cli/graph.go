package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/giannimassi/ehrtok/internal/config"
	"github.com/giannimassi/ehrtok/internal/dataset"
	"github.com/giannimassi/ehrtok/internal/prepare"
	"github.com/giannimassi/ehrtok/internal/vocab"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "graph [provider...]",
		Short: "Display ASCII histogram of time buckets",
		Long:  "Render an ASCII histogram of how inter-event time deltas fall into buckets, over all providers or the ones given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, ctx, err := setup(cmd)
			if err != nil {
				return err
			}
			edges, err := config.Edges(cfg.TimestampBins)
			if err != nil {
				return err
			}

			var datasets []*dataset.Dataset
			var v *vocab.Vocab
			if len(args) == 0 {
				voc, loaded, err := loadVocab(cfg)
				if err != nil {
					return err
				}
				v = loaded
				if datasets, err = prepare.Collect(ctx, cfg, voc); err != nil {
					return err
				}
			} else {
				for _, provider := range args {
					d, loaded, err := openDataset(ctx, cfg, provider)
					if err != nil {
						return err
					}
					v = loaded
					datasets = append(datasets, d)
				}
			}

			counts := make(map[int]int)
			for _, d := range datasets {
				if err := countBuckets(d, v, cfg.Columns.Timestamp, counts); err != nil {
					return err
				}
			}
			renderHistogram(cmd.OutOrStdout(), counts, edges, width)
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 50, "Width of the longest bar")

	return cmd
}

// countBuckets adds the bucket of every event in d to counts. Tokenized
// datasets are decoded through v and only tokens of the timestamp column count.
func countBuckets(d *dataset.Dataset, v *vocab.Vocab, timestampColumn string, counts map[int]int) error {
	if v == nil {
		sessions, err := d.Sessions()
		if err != nil {
			return err
		}
		for _, s := range sessions {
			for _, e := range s {
				counts[e.Bucket]++
			}
		}
		return nil
	}

	for seq, err := range d.All() {
		if err != nil {
			return err
		}
		for _, tok := range seq.Tokens() {
			e, err := v.TokenToField(tok)
			if err != nil {
				return err
			}
			if e.Field != timestampColumn {
				continue
			}
			b, err := strconv.Atoi(e.Value)
			if err != nil {
				return fmt.Errorf("bucket token %d has non-integer value %q", tok, e.Value)
			}
			counts[b]++
		}
	}
	return nil
}

func renderHistogram(w io.Writer, counts map[int]int, edges []float64, width int) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "no events")
		return
	}
	lo, hi, peak := math.MaxInt, math.MinInt, 0
	for b, n := range counts {
		lo, hi, peak = min(lo, b), max(hi, b), max(peak, n)
	}
	if width < 1 {
		width = 1
	}
	for b := lo; b <= hi; b++ {
		n := counts[b]
		bar := 0
		if peak > 0 {
			bar = int(math.Round(float64(n) / float64(peak) * float64(width)))
		}
		fmt.Fprintf(w, "%3d %-10s %8d %s\n", b, bucketLabel(b, edges), n, strings.Repeat("#", bar))
	}
}

// bucketLabel gives the upper delta bound of bucket b, as "<duration".
// Bucket b holds ln(delta+1) below edges[b+1].
func bucketLabel(b int, edges []float64) string {
	if b < 0 || len(edges) == 0 {
		return ""
	}
	if b+1 >= len(edges) {
		return "rest"
	}
	secs := math.Exp(edges[b+1]) - 1
	if secs <= 0 {
		return "<0s"
	}
	if secs > math.MaxInt64/float64(time.Second) {
		return "rest"
	}
	return "<" + (time.Duration(secs * float64(time.Second))).Round(time.Second).String()
}
