package dataset

import (
	"context"
	"fmt"

	"github.com/giannimassi/ehrtok/internal/bucket"
	"github.com/giannimassi/ehrtok/internal/parser"
	"github.com/giannimassi/ehrtok/internal/segment"
	"github.com/giannimassi/ehrtok/pkg/model"
)

// Stats summarizes one run of the pipeline over a provider log.
type Stats struct {
	Events   int `json:"events"`
	Shifts   int `json:"shifts"`
	Sessions int `json:"sessions"`
	Tokens   int `json:"tokens"`
}

// PrepareSessions orders events, segments them into shifts and sessions,
// remaps users per shift and buckets every delta. With no edges the bucket
// of every event is -1. events is sorted in place.
func PrepareSessions(ctx context.Context, events []model.RawEvent, shiftGap, sessionGap float64, edges []float64) ([]model.Session, Stats, error) {
	stats := Stats{Events: len(events)}
	parser.Sort(events)

	var sessions []model.Session
	for shift := range segment.Split(segment.Deltas(events), shiftGap) {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.Shifts++
		for raw := range segment.Split(segment.Remap(shift), sessionGap) {
			s, err := bucketSession(raw, edges)
			if err != nil {
				return nil, stats, err
			}
			sessions = append(sessions, s)
		}
	}
	stats.Sessions = len(sessions)
	return sessions, stats, nil
}

func bucketSession(events []model.DeltaEvent, edges []float64) (model.Session, error) {
	s := make(model.Session, len(events))
	for i, e := range events {
		b := -1
		if len(edges) > 0 {
			var err error
			b, err = bucket.Bucket(e.Delta, edges)
			if err != nil {
				return nil, fmt.Errorf("bucket event %d: %w", i, err)
			}
		}
		s[i] = model.PreparedEvent{
			User:   e.UserIndex,
			Delta:  e.Delta,
			Bucket: b,
			Fields: e.Fields,
		}
	}
	return s, nil
}
