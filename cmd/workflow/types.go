package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newTypesCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the node types and their default parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, closer, err := gf.registry(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			defer func() { _ = closer() }()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, nodeType := range reg.Types() {
				n, err := reg.New(nodeType)
				if err != nil {
					return err
				}
				params, err := json.Marshal(n.Params())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-12s %-16s %s\n", titleStyle.Render(nodeType), n.Title(), dimStyle.Render(string(params)))
			}
			return nil
		},
	}
}
