package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/rendis/authflow/pkg/mcp"
)

func newDescribeCmd(getApp func() *app) *cobra.Command {
	var fromStore bool
	cmd := &cobra.Command{
		Use:   "describe <flow>",
		Short: "Print the states and transitions of a flow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if err := a.initialize(cmd.Context(), fromStore); err != nil {
				return err
			}
			f, err := a.flow(args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(mcp.Describe(f))
		},
	}
	cmd.Flags().BoolVar(&fromStore, "from-store", false, "Load flows from the document catalog")
	return cmd
}
