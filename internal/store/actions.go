package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/entcache/internal/ir"
)

var (
	// ErrDigestMismatch is returned when a logged action no longer matches
	// its recorded digest.
	ErrDigestMismatch = errors.New("action digest mismatch")

	// ErrSeqConflict is returned when a seq is already logged with a
	// different action.
	ErrSeqConflict = errors.New("seq already logged with a different action")
)

// LoggedAction is one row of the action log.
type LoggedAction struct {
	Seq           int64
	Kind          string
	Type          string
	Action        ir.Action
	Digest        string
	EngineVersion string
	LogVersion    string
}

// AppendAction records a processed action. It implements engine.ActionLog.
//
// Appending the same action at the same seq twice is a no-op; a different
// action at a logged seq returns ErrSeqConflict.
func (s *Store) AppendAction(ctx context.Context, seq int64, a ir.Action) error {
	kind, payload, err := marshalAction(a)
	if err != nil {
		return fmt.Errorf("append action: %w", err)
	}
	digest := ir.ActionDigest(a.Type(), seq, []byte(payload))

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO actions
		(seq, kind, type, payload, digest, engine_version, log_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		seq,
		kind,
		a.Type(),
		payload,
		digest,
		ir.EngineVersion,
		ir.LogVersion,
	)
	if err != nil {
		return fmt.Errorf("append action seq %d: %w", seq, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("append action seq %d: %w", seq, err)
	}
	if n > 0 {
		return nil
	}

	var existing string
	if err := s.db.QueryRowContext(ctx, `SELECT digest FROM actions WHERE seq = ?`, seq).Scan(&existing); err != nil {
		return fmt.Errorf("append action seq %d: %w", seq, err)
	}
	if existing != digest {
		return fmt.Errorf("append action seq %d: %w", seq, ErrSeqConflict)
	}
	return nil
}

// ReadActions returns the whole action log ordered by seq.
// Returns an empty slice (not nil) for an empty log.
func (s *Store) ReadActions(ctx context.Context) ([]LoggedAction, error) {
	return s.ReadActionsAfter(ctx, 0)
}

// ReadActionsAfter returns the logged actions with seq > after, ordered by
// seq. Every row's digest is verified.
func (s *Store) ReadActionsAfter(ctx context.Context, after int64) ([]LoggedAction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, type, payload, digest, engine_version, log_version
		FROM actions
		WHERE seq > ?
		ORDER BY seq ASC
	`, after)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	logged := []LoggedAction{}
	for rows.Next() {
		la, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		logged = append(logged, la)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return logged, nil
}

func scanAction(rows *sql.Rows) (LoggedAction, error) {
	var la LoggedAction
	var payload string
	if err := rows.Scan(&la.Seq, &la.Kind, &la.Type, &payload, &la.Digest, &la.EngineVersion, &la.LogVersion); err != nil {
		return la, fmt.Errorf("scan action: %w", err)
	}
	if want := ir.ActionDigest(la.Type, la.Seq, []byte(payload)); want != la.Digest {
		return la, fmt.Errorf("action seq %d: %w", la.Seq, ErrDigestMismatch)
	}
	a, err := unmarshalAction(payload)
	if err != nil {
		return la, fmt.Errorf("action seq %d: %w", la.Seq, err)
	}
	if a.Type() != la.Type {
		return la, fmt.Errorf("action seq %d: type %q does not match payload type %q", la.Seq, la.Type, a.Type())
	}
	la.Action = a
	return la, nil
}

// LastSeq returns the highest logged seq, or 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM actions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq.Int64, nil
}

// CountActions returns the number of logged actions, optionally limited to
// one action type.
func (s *Store) CountActions(ctx context.Context, actionType string) (int, error) {
	query := `SELECT COUNT(*) FROM actions`
	var args []any
	if actionType != "" {
		query += ` WHERE type = ?`
		args = append(args, actionType)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return n, nil
}
