package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rendis/authflow/internal/loader"
	"github.com/rendis/authflow/internal/store"
)

func newStoreCmd(getApp func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage the flow document catalog",
	}
	cmd.AddCommand(
		newStoreImportCmd(getApp),
		newStoreListCmd(getApp),
		newStoreExportCmd(getApp),
		newStoreDeleteCmd(getApp),
	)
	return cmd
}

func newStoreImportCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import [dir]",
		Short: "Validate documents and save them in the catalog",
		Long:  `Each document is stored under its file name without extension, replacing any document of that name.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			dir := a.cfg.FlowsDir
			if len(args) > 0 {
				dir = args[0]
			}
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			paths, err := filepath.Glob(filepath.Join(dir, "*"))
			if err != nil {
				return err
			}
			n := 0
			for _, path := range paths {
				if !loader.IsDocument(path) {
					continue
				}
				doc, err := a.loader.LoadFile(path)
				if err != nil {
					printIssues(cmd.OutOrStdout(), issuesOf(err))
					return err
				}
				name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				if err := s.SaveDocument(ctx, &store.Document{Name: name, Definition: doc, Source: path}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %s (flow %s)\n", name, doc.ID)
				n++
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d documents imported\n", n)
			return nil
		},
	}
}

func newStoreListCmd(getApp func() *app) *cobra.Command {
	var flowID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			docs, err := s.ListDocuments(ctx, store.DocumentFilter{FlowID: flowID})
			if err != nil {
				return err
			}
			for _, d := range docs {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-16s %s\n", d.Name, d.FlowID, d.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flowID, "flow", "", "Only documents of this flow")
	return cmd
}

func newStoreExportCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <name>",
		Short: "Print a catalog document as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			d, err := s.GetDocument(ctx, args[0])
			if err != nil {
				return err
			}
			data, err := loader.Marshal(d.Definition)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newStoreDeleteCmd(getApp func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Remove a catalog document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx := cmd.Context()
			s, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer s.Close()
			return s.DeleteDocument(ctx, args[0])
		},
	}
}
