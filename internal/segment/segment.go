// Package segment splits ordered event streams into shifts and sessions and
// anonymizes user identifiers within each shift.
package segment

import (
	"iter"

	"github.com/giannimassi/ehrtok/pkg/model"
)

// Deltas converts an ordered event stream into delta events. The first event
// gets delta 0; every other event gets the difference to its predecessor's
// timestamp. Negative deltas are kept as-is.
func Deltas(events []model.RawEvent) []model.DeltaEvent {
	out := make([]model.DeltaEvent, len(events))
	for i, e := range events {
		var d float64
		if i > 0 {
			d = e.Timestamp - events[i-1].Timestamp
		}
		out[i] = model.DeltaEvent{
			User:   e.User,
			Delta:  d,
			Fields: e.Fields,
		}
	}
	return out
}

// Split yields maximal contiguous segments of events whose internal deltas do
// not exceed gap seconds. An event whose delta exceeds gap starts a new segment
// and has its delta reset to 0 in the yielded copy. The input is never modified.
func Split(events []model.DeltaEvent, gap float64) iter.Seq[[]model.DeltaEvent] {
	return func(yield func([]model.DeltaEvent) bool) {
		start := 0
		for i := 1; i <= len(events); i++ {
			if i < len(events) && events[i].Delta <= gap {
				continue
			}
			seg := make([]model.DeltaEvent, i-start)
			copy(seg, events[start:i])
			if start > 0 {
				seg[0].Delta = 0
			}
			if !yield(seg) {
				return
			}
			start = i
		}
	}
}

// Collect gathers every segment produced by Split.
func Collect(events []model.DeltaEvent, gap float64) [][]model.DeltaEvent {
	var out [][]model.DeltaEvent
	for seg := range Split(events, gap) {
		out = append(out, seg)
	}
	return out
}
