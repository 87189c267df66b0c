package cli

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/entcache/internal/engine"
	"github.com/roach88/entcache/internal/ir"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Entity   string // optional - print one collection only
}

// ReplayResult holds the replayed log summary and cache.
type ReplayResult struct {
	Actions       int              `json:"actions"`
	LastSeq       int64            `json:"last_seq"`
	ByType        map[string]int   `json:"by_type"`
	EngineVersion string           `json:"engine_version,omitempty"`
	Collections   []collectionView `json:"collections"`
	Deterministic bool             `json:"deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <entity-dir>",
		Short: "Rebuild the cache from the action log",
		Long: `Replay the action log of a SQLite database through the reducer
pipeline and print the resulting cache.

Effects do not run: the log already holds every action they produced.
The log is replayed twice and the two caches compared to verify the
replay is deterministic.

Exit codes:
  0 - Replay is deterministic
  1 - The two replays differ
  2 - Command error (database not found, etc.)

Examples:
  entcache replay --db ./cache.db ./entities
  entcache replay --db ./cache.db --entity Hero ./entities
  entcache replay --db ./cache.db --format json ./entities`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "print this collection only")

	return cmd
}

func runReplay(opts *ReplayOptions, dir string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	sess, err := openSession(ctx, formatter, dir, opts.Database)
	if err != nil {
		return err
	}
	defer sess.Close()

	summary, err := sess.db.Summarize(ctx)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}

	second := engine.Replay(sess.reducer, sess.initial, sess.actions)
	deterministic, err := sameSnapshot(sess.state.Snapshot(), second.Snapshot())
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	names := sess.state.Names()
	if opts.Entity != "" {
		names = []string{opts.Entity}
	}
	result := ReplayResult{
		Actions:       summary.Actions,
		LastSeq:       summary.LastSeq,
		ByType:        summary.ByType,
		EngineVersion: summary.EngineVersion,
		Collections:   make([]collectionView, 0, len(names)),
		Deterministic: deterministic,
	}
	for _, name := range names {
		result.Collections = append(result.Collections, viewOf(sess.state, name))
	}

	if formatter.JSON() {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// sameSnapshot compares two cache snapshots by their canonical bytes.
func sameSnapshot(a, b map[string][]ir.Object) (bool, error) {
	da, err := ir.MarshalCanonical(snapshotValue(a))
	if err != nil {
		return false, err
	}
	db, err := ir.MarshalCanonical(snapshotValue(b))
	if err != nil {
		return false, err
	}
	return bytes.Equal(da, db), nil
}

func snapshotValue(snap map[string][]ir.Object) ir.Object {
	out := make(ir.Object, len(snap))
	for name, recs := range snap {
		arr := make(ir.Array, len(recs))
		for i, rec := range recs {
			arr[i] = rec
		}
		out[name] = arr
	}
	return out
}

func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	resp := CLIResponse{Status: "ok", Data: result}
	if !result.Deterministic {
		resp.Status = "error"
		resp.Error = &CLIError{Code: "E_DETERMINISM", Message: "determinism verification failed"}
	}
	if err := formatter.Encode(resp); err != nil {
		return err
	}
	if !result.Deterministic {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

func outputReplayText(formatter *OutputFormatter, result ReplayResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %d action(s), last seq %d\n", result.Actions, result.LastSeq)
	if formatter.Verbose {
		types := make([]string, 0, len(result.ByType))
		for typ := range result.ByType {
			types = append(types, typ)
		}
		sort.Strings(types)
		for _, typ := range types {
			fmt.Fprintf(w, "  %5d  %s\n", result.ByType[typ], typ)
		}
	}
	fmt.Fprintln(w)

	for _, view := range result.Collections {
		if err := printView(formatter, view); err != nil {
			return err
		}
	}

	if !result.Deterministic {
		fmt.Fprintln(w, "✗ Determinism verification failed")
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	fmt.Fprintln(w, "✓ Replay verified deterministic")
	return nil
}
