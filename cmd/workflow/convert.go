package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConvertCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Convert a workflow document between formats",
		Long: `Convert reads IN (JSON, YAML or HCL) and writes OUT as JSON or YAML,
choosing each format from the file extension.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			wf, err := loadWorkflow(args[0])
			if err != nil {
				return err
			}
			if err := wf.SaveToFile(args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", args[1])
			return nil
		},
	}
}
