package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/workflow-go/workflow/store"
)

func newHistoryCmd(gf *globalFlags) *cobra.Command {
	var (
		workflowID string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List recorded runs, or show the steps of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if gf.NoHistory {
				return errors.New("history is disabled by --no-history")
			}
			st, err := gf.openStore()
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if len(args) == 1 {
				return showRun(cmd, st, args[0])
			}
			return listRuns(cmd, st, workflowID, limit)
		},
	}
	cmd.Flags().StringVar(&workflowID, "workflow", "", "Only list runs of this workflow ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	return cmd
}

func listRuns(cmd *cobra.Command, st store.Store, workflowID string, limit int) error {
	runs, err := st.ListRuns(cmd.Context(), workflowID, limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, dimStyle.Render("no runs recorded"))
		return nil
	}
	fmt.Fprintf(out, "%s\n", headerStyle.Render(fmt.Sprintf("%-36s  %-20s  %-10s  %-19s  %s", "RUN", "WORKFLOW", "STATUS", "STARTED", "NODES")))
	for _, r := range runs {
		fmt.Fprintf(out, "%-36s  %-20s  %-10s  %-19s  %d/%d\n",
			r.RunID,
			truncate(r.WorkflowName, 20),
			statusStyle(r.Status).Render(r.Status),
			r.StartTime.Local().Format(time.DateTime),
			r.SuccessfulNodes,
			r.TotalNodes,
		)
	}
	return nil
}

func showRun(cmd *cobra.Command, st store.Store, runID string) error {
	ctx := cmd.Context()
	run, err := st.LoadRun(ctx, runID)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no run %s", runID)
	}
	if err != nil {
		return err
	}
	steps, err := st.LoadSteps(ctx, runID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s\n", titleStyle.Render(run.WorkflowName), statusStyle(run.Status).Render(run.Status))
	fmt.Fprintf(out, "run      %s\nstarted  %s\n", run.RunID, run.StartTime.Local().Format(time.DateTime))
	if !run.EndTime.IsZero() {
		fmt.Fprintf(out, "duration %s\n", run.EndTime.Sub(run.StartTime).Round(time.Millisecond))
	}
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "error    %s\n", failStyle.Render(run.ErrorMessage))
	}
	for _, s := range steps {
		fmt.Fprintf(out, "  %2d  %-10s %-24s %s\n", s.Step, statusStyle(s.Status).Render(s.Status), s.Title, s.Message)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
