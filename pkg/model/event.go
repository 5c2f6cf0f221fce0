package model

import "strconv"

// RawEvent represents a single row of a provider's audit log.
// Keys holds the full sort-key tuple in configured order; Timestamp is the
// canonical timestamp converted to epoch seconds.
type RawEvent struct {
	User      string    `json:"user"`
	Timestamp float64   `json:"timestamp"`
	Keys      []SortKey `json:"keys"`
	Fields    []string  `json:"fields"`
}

// SortKey is one component of a RawEvent's sort tuple. Numeric columns
// (including parsed date-times) compare by Num, everything else by Str.
type SortKey struct {
	Num     float64 `json:"num"`
	Str     string  `json:"str"`
	Numeric bool    `json:"numeric"`
}

// Compare orders two keys of the same column.
func (k SortKey) Compare(o SortKey) int {
	if k.Numeric && o.Numeric {
		switch {
		case k.Num < o.Num:
			return -1
		case k.Num > o.Num:
			return 1
		}
		return 0
	}
	switch {
	case k.Str < o.Str:
		return -1
	case k.Str > o.Str:
		return 1
	}
	return 0
}

// DeltaEvent is an event with its time delta to the preceding event in seconds.
// User holds the raw identifier until the event is remapped; afterwards User is
// empty and UserIndex is the dense per-shift index.
type DeltaEvent struct {
	User      string
	UserIndex int
	Delta     float64
	Fields    []string
}

// PreparedEvent is an anonymized event with its delta bucketed.
// Bucket is -1 when no bucket edges were configured.
type PreparedEvent struct {
	User   int      `json:"user"`
	Delta  float64  `json:"delta"`
	Bucket int      `json:"bucket"`
	Fields []string `json:"fields"`
}

// Session is one bucketed session, the unit of output.
type Session []PreparedEvent

// Sequence is the tokenized form of one session, split into chunks.
// An unchunked sequence has exactly one chunk.
type Sequence [][]int

// Tokens returns the chunks concatenated back into one token list.
func (s Sequence) Tokens() []int {
	n := 0
	for _, c := range s {
		n += len(c)
	}
	out := make([]int, 0, n)
	for _, c := range s {
		out = append(out, c...)
	}
	return out
}

// Values returns the event's tokenized values as strings, in column order:
// user index, time bucket, then the event-type fields.
func (e PreparedEvent) Values() []string {
	vals := make([]string, 0, 2+len(e.Fields))
	vals = append(vals, strconv.Itoa(e.User), strconv.Itoa(e.Bucket))
	return append(vals, e.Fields...)
}
