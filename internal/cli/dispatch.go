package cli

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/entcache/internal/di"
	"github.com/roach88/entcache/internal/engine"
	"github.com/roach88/entcache/internal/ir"
)

// DispatchOptions holds flags for the dispatch command.
type DispatchOptions struct {
	*RootOptions
	Database      string
	Entity        string
	Op            string
	Data          string // JSON
	Tag           string
	Optimistic    bool
	MergeStrategy string
	MaxSteps      int
}

// DispatchedAction is one action processed by a dispatch.
type DispatchedAction struct {
	Seq  int64  `json:"seq"`
	Type string `json:"type"`
}

// DispatchResult holds the outcome of a dispatch.
type DispatchResult struct {
	Actions    []DispatchedAction `json:"actions"`
	Collection collectionView     `json:"collection"`
	Failures   []string           `json:"failures,omitempty"`
}

// NewDispatchCommand creates the dispatch command.
func NewDispatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DispatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dispatch <entity-dir>",
		Short: "Dispatch one entity action against a database",
		Long: `Dispatch one entity action against the entity table and action log
in a SQLite database.

The cache is first rebuilt by replaying the action log. Persistence ops
(query-*, save-*) round-trip through the entity table; the action and
every follow-up are appended to the log. The resulting collection is
printed.

The op may omit the "entity/" prefix.

Exit codes:
  0 - Action processed
  1 - Runtime failures while processing (rejected data, quota exceeded)
  2 - Command error (bad flags, unreadable database, invalid --data)

Examples:
  entcache dispatch --db ./cache.db --entity Hero --op query-all ./entities
  entcache dispatch --db ./cache.db --entity Hero --op save-add-one \
    --data '{"id":1,"name":"Ada"}' ./entities`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDispatch(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "entity name (required)")
	cmd.Flags().StringVar(&opts.Op, "op", "", "entity op, e.g. query-all or entity/add-one (required)")
	cmd.Flags().StringVar(&opts.Data, "data", "", "action data as JSON")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "tag used in the action type label")
	cmd.Flags().BoolVar(&opts.Optimistic, "optimistic", false, "apply a save to the cache before the database confirms it")
	cmd.Flags().StringVar(&opts.MergeStrategy, "merge-strategy", "", "preserve-changes, overwrite-changes or ignore-changes")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", engine.DefaultMaxSteps, "maximum actions processed per dispatch")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("op")

	return cmd
}

func runDispatch(opts *DispatchOptions, dir string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	factory := ir.NewEntityActionFactory(ir.UUIDv7Generator{})
	action, err := opts.action(factory)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadAction, err.Error())
	}

	sess, err := openSession(ctx, formatter, dir, opts.Database)
	if err != nil {
		return err
	}
	defer sess.Close()

	container := di.NewContainer()
	container.ProvideValue(di.TokenDataService, sess.db.Entities(sess.loaded.Metadata))
	container.ProvideValue(di.TokenActionFactory, factory)

	var (
		mu       sync.Mutex
		failures []string
	)
	live, err := engine.Build(
		engine.Config{EntityMetadata: sess.loaded.Metadata},
		container,
		engine.WithActionLog(sess.db),
		engine.WithClock(engine.NewClockAt(sess.lastSeq)),
		engine.WithInitialState(sess.state),
		engine.WithMaxSteps(opts.MaxSteps),
		engine.WithFailureHandler(func(err error) {
			mu.Lock()
			defer mu.Unlock()
			failures = append(failures, err.Error())
		}),
	)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}
	defer live.Close()

	formatter.VerboseLog("Dispatching %s", ir.Describe(action))
	// A tripped step quota already reached the failure handler.
	if err := live.Dispatch(ctx, action); err != nil && !engine.IsStepsExceededError(err) {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	logged, err := sess.db.ReadActionsAfter(ctx, sess.lastSeq)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeDatabase, err.Error())
	}

	result := DispatchResult{
		Actions:    make([]DispatchedAction, 0, len(logged)),
		Collection: viewOf(live.State(), action.EntityName()),
		Failures:   failures,
	}
	for _, la := range logged {
		result.Actions = append(result.Actions, DispatchedAction{Seq: la.Seq, Type: la.Type})
	}

	return outputDispatch(formatter, result)
}

// action builds the entity action described by the flags.
func (o *DispatchOptions) action(factory *ir.EntityActionFactory) (ir.EntityAction, error) {
	op := o.Op
	if !strings.HasPrefix(op, "entity/") {
		op = "entity/" + op
	}
	strategy := ir.MergeStrategy(o.MergeStrategy)
	if !ir.ValidMergeStrategies[strategy] {
		return ir.EntityAction{}, fmt.Errorf("unknown merge strategy %q", o.MergeStrategy)
	}

	actionOpts := []ir.ActionOption{
		ir.WithTag(o.Tag),
		ir.WithOptimistic(o.Optimistic),
		ir.WithMergeStrategy(strategy),
	}
	if o.Data != "" {
		data, err := ir.ParseJSON([]byte(o.Data))
		if err != nil {
			return ir.EntityAction{}, fmt.Errorf("invalid --data: %w", err)
		}
		actionOpts = append(actionOpts, ir.WithData(data))
	}
	return factory.Create(o.Entity, ir.EntityOp(op), actionOpts...), nil
}

func outputDispatch(formatter *OutputFormatter, result DispatchResult) error {
	var failed error
	if len(result.Failures) > 0 {
		failed = NewExitError(ExitFailure, fmt.Sprintf("%d failure(s) while processing", len(result.Failures)))
	}

	if formatter.JSON() {
		resp := CLIResponse{Status: "ok", Data: result}
		if failed != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeGeneric, Message: result.Failures[0]}
		}
		if err := formatter.Encode(resp); err != nil {
			return err
		}
		return failed
	}

	w := formatter.Writer
	for _, a := range result.Actions {
		fmt.Fprintf(w, "[%d] %s\n", a.Seq, a.Type)
	}
	fmt.Fprintln(w)
	if err := printView(formatter, result.Collection); err != nil {
		return err
	}
	for _, f := range result.Failures {
		fmt.Fprintf(w, "✗ %s\n", f)
	}
	return failed
}
