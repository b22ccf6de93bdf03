package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rendis/authflow/internal/engine"
	"github.com/rendis/authflow/pkg/mcp"
)

func newMCPCmd(getApp func() *app) *cobra.Command {
	var (
		fromStore   bool
		noExec      bool
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run the Model Context Protocol (MCP) server on stdio",
		Long: `Exposes the loaded flows to AI agents: authflow.list, authflow.describe,
authflow.resolve, authflow.validate and authflow.diagram, plus authflow.start
and authflow.signal unless --no-exec is given. Logs go to stderr so they never corrupt the
JSON-RPC stream on stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if metricsAddr != "" {
				stop := a.serveMetrics(metricsAddr)
				defer stop()
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := a.initialize(ctx, fromStore); err != nil {
				return err
			}
			deps := mcp.ServerDeps{Builder: a.builder, Logger: a.log, Version: version}
			if !noExec {
				deps.History = engine.NewHistory()
				deps.Executor = engine.NewExecutor(a.builder.Registry(), engine.Config{
					Logger:   a.log,
					Metrics:  a.metrics,
					Recorder: deps.History,
				})
			}
			a.log.Info("starting MCP server (stdio)", "flows", a.builder.Registry().Len())
			return mcp.NewServer(deps).Serve(ctx)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&fromStore, "from-store", false, "Load flows from the document catalog")
	f.BoolVar(&noExec, "no-exec", false, "Only register the read-only tools")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	return cmd
}
