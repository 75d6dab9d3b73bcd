package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/workflow-go/workflow"
)

func newOrderCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "order FILE",
		Short: "Print the order in which nodes would execute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := loadWorkflow(args[0])
			if err != nil {
				return err
			}
			order, ok := workflow.ExecutionOrder(wf)
			if !ok {
				return &exitError{code: ExitError, err: workflow.ErrCircularDependency}
			}
			out := cmd.OutOrStdout()
			for i, n := range order {
				fmt.Fprintf(out, "%3d  %-12s %-24s %s\n", i+1, n.Type(), n.Title(), dimStyle.Render(n.ID()))
			}
			return nil
		},
	}
}
