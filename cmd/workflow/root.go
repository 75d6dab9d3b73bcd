package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Exit codes.
const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitFailed    = 2
	ExitCancelled = 130
)

// exitError carries a process exit code through cobra's error return.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return ExitError
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:   "workflow",
		Short: "Run DAG automation workflows",
		Long: `workflow loads automation workflows from JSON, YAML or HCL documents,
validates them, and executes their nodes one at a time in dependency order.

Run history is recorded in a SQLite database (or MySQL with --mysql-dsn).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return flags.resolve()
		},
	}
	registerGlobalFlags(root, flags)

	root.AddCommand(
		newRunCmd(flags),
		newValidateCmd(flags),
		newOrderCmd(flags),
		newConvertCmd(flags),
		newHistoryCmd(flags),
		newTypesCmd(flags),
	)
	return root
}

// Execute runs the command tree with SIGINT and SIGTERM cancelling ctx.
func Execute(ctx context.Context, args []string) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
