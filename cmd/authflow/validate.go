package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rendis/authflow/internal/validation"
)

func newValidateCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Load, build and check flow documents",
		Long:  `Loads every document in dir (default: the flows directory), builds the flows and reports unresolved targets, unreachable states and other graph issues.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			dir := a.cfg.FlowsDir
			if len(args) > 0 {
				dir = args[0]
			}
			out := cmd.OutOrStdout()

			docs, err := a.loader.LoadDir(dir)
			if err != nil {
				fmt.Fprintf(out, "documents: %v\n", err)
				printIssues(out, issuesOf(err))
				return errors.New("validation failed")
			}
			if err := a.applier.Apply(cmd.Context(), a.builder, docs); err != nil {
				fmt.Fprintf(out, "build: %v\n", err)
				return errors.New("validation failed")
			}

			reg := a.builder.Registry()
			failed := false
			for _, id := range reg.IDs() {
				f, err := reg.Get(id)
				if err != nil {
					return err
				}
				result := validation.ValidateGraph(f, reg)
				status := "ok"
				if !result.Valid() {
					status = "invalid"
					failed = true
				}
				fmt.Fprintf(out, "%s: %s (%d states)\n", id, status, f.StateCount())
				printIssues(out, result.Issues())
			}
			if failed {
				return errors.New("validation failed")
			}
			fmt.Fprintf(out, "%d documents, %d flows valid\n", len(docs), reg.Len())
			return nil
		},
	}
}
