package vocab

import (
	"sort"
	"strconv"

	"github.com/giannimassi/ehrtok/pkg/model"
)

// Builder collects the values observed per tokenized column and turns them
// into a Vocab with deterministic token ids.
type Builder struct {
	columns []string
	seen    []map[string]struct{}
}

// NewBuilder returns a Builder for columns in tokenized order: user, time
// bucket, then event types.
func NewBuilder(columns []string) *Builder {
	seen := make([]map[string]struct{}, len(columns))
	for i := range seen {
		seen[i] = make(map[string]struct{})
	}
	return &Builder{columns: columns, seen: seen}
}

// Observe records every value of every event in s.
func (b *Builder) Observe(s model.Session) {
	for _, e := range s {
		for i, v := range e.Values() {
			if i < len(b.seen) {
				b.seen[i][v] = struct{}{}
			}
		}
	}
}

// Reserve adds the integers [0, n) to column so that unseen user indices or
// buckets still have tokens.
func (b *Builder) Reserve(column string, n int) {
	for i, c := range b.columns {
		if c != column {
			continue
		}
		for v := 0; v < n; v++ {
			b.seen[i][strconv.Itoa(v)] = struct{}{}
		}
	}
}

// Build returns the vocabulary. Within a column, integer values sort
// numerically ahead of other values, which sort lexically.
func (b *Builder) Build() *Vocab {
	v := New()
	for i, c := range b.columns {
		values := make([]string, 0, len(b.seen[i]))
		for val := range b.seen[i] {
			values = append(values, val)
		}
		sort.Slice(values, func(x, y int) bool {
			return lessValue(values[x], values[y])
		})
		for _, val := range values {
			v.Add(c, val)
		}
	}
	return v
}

func lessValue(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	}
	return a < b
}
