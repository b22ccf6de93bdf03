package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rendis/authflow/internal/actions"
	"github.com/rendis/authflow/internal/builder"
	"github.com/rendis/authflow/internal/config"
	"github.com/rendis/authflow/internal/expressions"
	"github.com/rendis/authflow/internal/flow"
	"github.com/rendis/authflow/internal/loader"
	"github.com/rendis/authflow/internal/logging"
	"github.com/rendis/authflow/internal/metrics"
	"github.com/rendis/authflow/internal/store"
	"github.com/rendis/authflow/internal/validation"
	"github.com/rendis/authflow/pkg/schema"
)

// app is the wiring shared by every command.
type app struct {
	cfg       config.Config
	log       *slog.Logger
	promReg   *prometheus.Registry
	metrics   *metrics.Metrics
	parser    *expressions.Parser
	actions   *actions.Registry
	validator *validation.DocumentValidator
	loader    *loader.Loader
	applier   *loader.Applier
	builder   *builder.Builder
}

func newApp(cfg config.Config) (*app, error) {
	log := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	parser, err := expressions.NewParserWithDefault(cfg.DefaultDialect)
	if err != nil {
		return nil, err
	}
	acts := actions.NewRegistry()
	if err := actions.RegisterBuiltins(acts, actions.Deps{Parser: parser, Logger: log}); err != nil {
		return nil, err
	}
	v, err := validation.NewDocumentValidator(acts, parser)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	return &app{
		cfg:       cfg,
		log:       log,
		promReg:   reg,
		metrics:   m,
		parser:    parser,
		actions:   acts,
		validator: v,
		loader:    loader.New(v),
		applier:   loader.NewApplier(acts),
		builder: builder.New(flow.NewRegistry(), parser, builder.Config{
			Logger:        log,
			Metrics:       m,
			Autoconfigure: cfg.Autoconfigure,
		}),
	}, nil
}

// openStore opens and migrates the document catalog.
func (a *app) openStore(ctx context.Context) (*store.LibSQLStore, error) {
	s, err := store.NewLibSQLStore(a.cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate %s: %w", a.cfg.DBPath, err)
	}
	return s, nil
}

// initialize builds the registry from the flows directory, or from the
// catalog when fromStore is set.
func (a *app) initialize(ctx context.Context, fromStore bool) error {
	var c builder.Configurer
	if fromStore {
		s, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		defer s.Close()
		c = &store.Configurer{Store: s, Applier: a.applier}
	} else {
		c = &loader.Configurer{Dir: a.cfg.FlowsDir, Loader: a.loader, Applier: a.applier}
	}

	report := a.builder.Initialize(ctx, c)
	if report.Skipped {
		return errors.New("autoconfigure is disabled; no flows were loaded")
	}
	return report.Err
}

func (a *app) flow(id string) (*flow.Flow, error) {
	return a.builder.Registry().Get(id)
}

// serveMetrics exposes the app's collectors on addr until the returned
// function is called.
func (a *app) serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.promReg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		a.log.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server failed", "error", err)
		}
	}()
	return func() { _ = srv.Shutdown(context.Background()) }
}

// newRootCmd builds the command tree. The app is created once flags are
// parsed and handed to subcommands through the returned pointer.
func newRootCmd() *cobra.Command {
	var (
		a            *app
		settingsPath string
	)

	root := &cobra.Command{
		Use:           "authflow",
		Short:         "authflow builds and inspects login flow graphs",
		Long:          `authflow assembles login flows from declarative documents, validates them, and drives them with a reference engine.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(settingsPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			a, err = newApp(cfg)
			return err
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&settingsPath, "config", config.SettingsPath(), "Settings file")
	pf.String("flows", "", "Directory of flow documents (overrides flows_dir)")
	pf.String("db", "", "Document catalog path, e.g. file:/tmp/authflow.db (overrides db_path)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: text or json")
	pf.String("dialect", "", "Default expression dialect: expr, cel or jq")

	getApp := func() *app { return a }
	root.AddCommand(
		newValidateCmd(getApp),
		newDescribeCmd(getApp),
		newResolveCmd(getApp),
		newRunCmd(getApp),
		newDiagramCmd(getApp),
		newStoreCmd(getApp),
		newMCPCmd(getApp),
		newVersionCmd(),
	)
	return root
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, dst *string) {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	set("flows", &cfg.FlowsDir)
	set("db", &cfg.DBPath)
	set("log-level", &cfg.LogLevel)
	set("log-format", &cfg.LogFormat)
	set("dialect", &cfg.DefaultDialect)
}

// printIssues writes validation issues carried by err or result.
func printIssues(w io.Writer, issues []schema.ValidationIssue) {
	for _, is := range issues {
		fmt.Fprintf(w, "  %-7s %-24s %s: %s\n", is.Severity, is.Code, is.Path, is.Message)
	}
}

// issuesOf extracts validation issues from a loader error.
func issuesOf(err error) []schema.ValidationIssue {
	var fe *schema.FlowError
	if !errors.As(err, &fe) || fe.Details == nil {
		return nil
	}
	issues, _ := fe.Details["errors"].([]schema.ValidationIssue)
	return issues
}
