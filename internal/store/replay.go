package store

import (
	"context"
	"fmt"

	"github.com/roach88/entcache/internal/ir"
)

// ReplayLog returns the logged actions in seq order together with the last
// seq, ready to fold through a reducer. Continue numbering new actions
// after lastSeq so the log stays gap-free.
func (s *Store) ReplayLog(ctx context.Context) (actions []ir.Action, lastSeq int64, err error) {
	logged, err := s.ReadActions(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("replay log: %w", err)
	}
	actions = make([]ir.Action, 0, len(logged))
	for _, la := range logged {
		actions = append(actions, la.Action)
		lastSeq = la.Seq
	}
	return actions, lastSeq, nil
}

// LogSummary describes the action log for inspection.
type LogSummary struct {
	Actions       int
	LastSeq       int64
	ByType        map[string]int
	EngineVersion string // of the newest row
}

// Summarize reads the whole log and counts actions by type.
func (s *Store) Summarize(ctx context.Context) (LogSummary, error) {
	logged, err := s.ReadActions(ctx)
	if err != nil {
		return LogSummary{}, fmt.Errorf("summarize: %w", err)
	}
	sum := LogSummary{ByType: map[string]int{}}
	for _, la := range logged {
		sum.Actions++
		sum.ByType[la.Type]++
		sum.LastSeq = la.Seq
		sum.EngineVersion = la.EngineVersion
	}
	return sum, nil
}
