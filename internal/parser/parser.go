package parser

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/giannimassi/ehrtok/pkg/model"
)

// Options selects the columns to read from an audit log.
type Options struct {
	UserColumn      string
	TimestampColumn string
	SortColumns     []string // must contain TimestampColumn
	EventColumns    []string
	Delimiter       rune // defaults to ','
}

// columnKind is the inferred type of a column.
type columnKind int

const (
	kindString columnKind = iota
	kindNumeric
	kindDate
)

// ReadLog reads an audit log file and returns its events in file order.
func ReadLog(path string, opts Options) ([]model.RawEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	events, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return events, nil
}

// Read parses a delimited log with a header row. Sort columns are typed per
// column: numeric when every value parses as a number, date-time when every
// value parses as a date, otherwise string. The timestamp column must be
// numeric (epoch seconds) or date-time.
func Read(r io.Reader, opts Options) ([]model.RawEvent, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	lookup := func(names ...string) ([]int, error) {
		out := make([]int, len(names))
		for i, name := range names {
			pos, ok := index[name]
			if !ok {
				return nil, fmt.Errorf("column %q not found in header", name)
			}
			out[i] = pos
		}
		return out, nil
	}

	userPos, err := lookup(opts.UserColumn)
	if err != nil {
		return nil, err
	}
	sortPos, err := lookup(opts.SortColumns...)
	if err != nil {
		return nil, err
	}
	eventPos, err := lookup(opts.EventColumns...)
	if err != nil {
		return nil, err
	}
	tsKey := -1
	for i, name := range opts.SortColumns {
		if name == opts.TimestampColumn {
			tsKey = i
			break
		}
	}
	if tsKey < 0 {
		return nil, fmt.Errorf("timestamp column %q must be a sort column", opts.TimestampColumn)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}

	kinds := make([]columnKind, len(sortPos))
	for i, pos := range sortPos {
		kinds[i] = inferKind(rows, pos)
	}
	if kinds[tsKey] == kindString {
		return nil, fmt.Errorf("timestamp column %q is neither numeric nor a date", opts.TimestampColumn)
	}

	events := make([]model.RawEvent, 0, len(rows))
	for n, rec := range rows {
		keys := make([]model.SortKey, len(sortPos))
		for i, pos := range sortPos {
			if i != tsKey && kinds[i] != kindString && strings.TrimSpace(rec[pos]) == "" {
				keys[i] = model.SortKey{Num: math.Inf(1), Numeric: true} // missing values sort last
				continue
			}
			key, err := parseKey(rec[pos], kinds[i])
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", n+2, opts.SortColumns[i], err)
			}
			keys[i] = key
		}
		fields := make([]string, len(eventPos))
		for i, pos := range eventPos {
			fields[i] = rec[pos]
		}
		events = append(events, model.RawEvent{
			User:      rec[userPos[0]],
			Timestamp: keys[tsKey].Num,
			Keys:      keys,
			Fields:    fields,
		})
	}
	return events, nil
}

// Sort orders events by their full sort-key tuple. Equal tuples keep file order.
func Sort(events []model.RawEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i].Keys, events[j].Keys
		for k := range a {
			if k >= len(b) {
				return false
			}
			if c := a[k].Compare(b[k]); c != 0 {
				return c < 0
			}
		}
		return len(a) < len(b)
	})
}

func inferKind(rows [][]string, pos int) columnKind {
	if allValues(rows, pos, func(v string) bool {
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	}) {
		return kindNumeric
	}
	if allValues(rows, pos, func(v string) bool {
		_, err := parseEpoch(v)
		return err == nil
	}) {
		return kindDate
	}
	return kindString
}

// allValues reports whether ok holds for every non-empty value in column pos.
func allValues(rows [][]string, pos int, ok func(string) bool) bool {
	for _, rec := range rows {
		v := strings.TrimSpace(rec[pos])
		if v != "" && !ok(v) {
			return false
		}
	}
	return true
}

func parseKey(raw string, kind columnKind) (model.SortKey, error) {
	v := strings.TrimSpace(raw)
	switch kind {
	case kindNumeric:
		if v == "" {
			return model.SortKey{}, errors.New("missing value")
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return model.SortKey{}, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return model.SortKey{}, fmt.Errorf("non-finite value %q", v)
		}
		return model.SortKey{Num: f, Str: raw, Numeric: true}, nil
	case kindDate:
		if v == "" {
			return model.SortKey{}, errors.New("missing value")
		}
		epoch, err := parseEpoch(v)
		if err != nil {
			return model.SortKey{}, err
		}
		return model.SortKey{Num: float64(epoch), Str: raw, Numeric: true}, nil
	}
	return model.SortKey{Str: raw}, nil
}

// parseEpoch parses a date-time string to Unix seconds, truncating fractional
// seconds. Values without a zone are taken as UTC.
func parseEpoch(ts string) (int64, error) {
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.Unix(), nil
	}
	t, err := dateparse.ParseIn(ts, time.UTC)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
