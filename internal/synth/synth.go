// Package synth writes synthetic provider audit logs for demos and tests.
package synth

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/giannimassi/ehrtok/pkg/model"
)

// DateLayout is used for timestamps when Options.DateTimestamps is set.
const DateLayout = "2006-01-02 15:04:05"

var metricNames = []string{
	"Login",
	"Patient Lookup",
	"Chart Review",
	"Results Review",
	"Order Entry",
	"Note Entry",
	"In Basket",
	"Medication Reconciliation",
	"Problem List Review",
	"Secure Chat",
}

var reportNames = []string{
	"Summary",
	"Flowsheet",
	"Imaging",
	"Lab Trend",
	"Vitals",
}

// Options controls the shape of generated logs.
type Options struct {
	Providers         int
	EventsPerProvider int
	Patients          int // patient pool per provider
	Start             time.Time
	Seed              int64 // 0 picks a random seed
	Columns           model.Columns
	LogName           string
	Delimiter         rune
	DateTimestamps    bool // write the timestamp column as DateLayout instead of epoch seconds
}

// DefaultOptions returns options matching the default configuration.
func DefaultOptions() Options {
	cfg := model.DefaultConfig()
	return Options{
		Providers:         3,
		EventsPerProvider: 500,
		Patients:          25,
		Start:             time.Date(2023, 1, 2, 7, 0, 0, 0, time.UTC),
		Seed:              1,
		Columns:           cfg.Columns,
		LogName:           cfg.LogName,
		Delimiter:         ',',
	}
}

// Generate writes one log per provider under root and returns the provider
// directories in creation order.
func Generate(root string, opts Options) ([]string, error) {
	if opts.Providers < 1 || opts.EventsPerProvider < 0 || opts.Patients < 1 {
		return nil, fmt.Errorf("need at least one provider and patient, got %d providers, %d patients", opts.Providers, opts.Patients)
	}
	if opts.Columns.User == "" || opts.Columns.Timestamp == "" || len(opts.Columns.EventTypes) == 0 {
		return nil, fmt.Errorf("user, timestamp and event-type columns are required")
	}
	f := gofakeit.New(opts.Seed)

	var dirs []string
	for i := 0; i < opts.Providers; i++ {
		dir := filepath.Join(root, fmt.Sprintf("provider-%s", f.UUID()[:8]))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		if err := writeLog(f, filepath.Join(dir, opts.LogName), opts); err != nil {
			return nil, fmt.Errorf("write %s: %w", dir, err)
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

// header lists user, sort, then event-type columns without duplicates.
func header(c model.Columns) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range append(append([]string{c.User}, c.Sort...), c.EventTypes...) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func writeLog(f *gofakeit.Faker, path string, opts Options) error {
	patients := make([]string, opts.Patients)
	for i := range patients {
		patients[i] = f.Numerify("PAT#######")
	}

	cols := header(opts.Columns)
	rows := make([][]string, 0, opts.EventsPerProvider)
	ts := opts.Start.Add(time.Duration(f.Number(0, 6*60)) * time.Minute)
	patient := f.RandomString(patients)
	for n := 0; n < opts.EventsPerProvider; n++ {
		if n > 0 {
			ts = ts.Add(nextGap(f))
		}
		if f.Number(1, 100) <= 20 {
			patient = f.RandomString(patients)
		}
		row := make([]string, len(cols))
		for i, name := range cols {
			switch {
			case name == opts.Columns.User:
				row[i] = patient
			case name == opts.Columns.Timestamp:
				if opts.DateTimestamps {
					row[i] = ts.UTC().Format(DateLayout)
				} else {
					row[i] = strconv.FormatInt(ts.Unix(), 10)
				}
			case isSort(opts.Columns, name):
				row[i] = strconv.Itoa(n)
			case name == opts.Columns.EventTypes[0]:
				row[i] = f.RandomString(metricNames)
			default:
				row[i] = f.RandomString(reportNames)
			}
		}
		rows = append(rows, row)
	}
	// Logs are not guaranteed to arrive in order.
	f.ShuffleAnySlice(rows)

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(out)
	if opts.Delimiter != 0 {
		w.Comma = opts.Delimiter
	}
	if err := w.Write(cols); err != nil {
		out.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// nextGap draws an inter-event gap: mostly seconds, sometimes a session
// break, rarely a shift break.
func nextGap(f *gofakeit.Faker) time.Duration {
	switch p := f.Number(1, 1000); {
	case p <= 5:
		return time.Duration(f.Number(8*60, 16*60)) * time.Minute
	case p <= 60:
		return time.Duration(f.Number(5, 45)) * time.Minute
	default:
		return time.Duration(f.Number(1, 120)) * time.Second
	}
}

func isSort(c model.Columns, name string) bool {
	for _, s := range c.Sort {
		if s == name {
			return true
		}
	}
	return false
}
