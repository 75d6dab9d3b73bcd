package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/workflow-go/workflow"
)

func newValidateCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a workflow document without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := loadWorkflow(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			valid := printValidation(out, wf.Validate())
			if _, ok := workflow.ExecutionOrder(wf); !ok {
				fmt.Fprintln(out, failStyle.Render("error:"), "Workflow contains circular dependencies")
				valid = false
			}
			if !valid {
				return &exitError{code: ExitError, err: errInvalidWorkflow}
			}
			fmt.Fprintf(out, "%s %s (%d nodes, %d connections)\n",
				okStyle.Render("valid"), wf.Name, len(wf.Nodes()), len(wf.Connections()))
			return nil
		},
	}
}
