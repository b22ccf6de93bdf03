package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rendis/authflow/internal/engine"
	"github.com/rendis/authflow/pkg/schema"
)

func newRunCmd(getApp func() *app) *cobra.Command {
	var (
		fromStore   bool
		inputJSON   string
		events      []string
		trace       bool
		maxSteps    int
		metricsAddr string
	)
	cmd := &cobra.Command{
		Use:   "run <flow>",
		Short: "Drive a flow with the reference engine",
		Long: `Starts an execution of flow and delivers each --event in order while the
execution is paused on a view. An event is "name" or "name=<json object>",
the object becoming the request parameters of the next step.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if metricsAddr != "" {
				stop := a.serveMetrics(metricsAddr)
				defer stop()
			}
			ctx := cmd.Context()
			if err := a.initialize(ctx, fromStore); err != nil {
				return err
			}
			input, err := parseObject(inputJSON)
			if err != nil {
				return fmt.Errorf("--input: %w", err)
			}
			signals := make([]schema.Signal, 0, len(events))
			for _, ev := range events {
				sig, err := parseSignal(ev)
				if err != nil {
					return err
				}
				signals = append(signals, sig)
			}

			history := engine.NewHistory()
			exec := engine.NewExecutor(a.builder.Registry(), engine.Config{
				MaxSteps: maxSteps,
				Logger:   a.log,
				Metrics:  a.metrics,
				Recorder: history,
			})
			out := cmd.OutOrStdout()

			x, runErr := exec.Start(ctx, args[0], input)
			if x == nil {
				return runErr
			}
			printStep(out, "start", x)
			for _, sig := range signals {
				if runErr != nil || x.Status != schema.ExecutionStatusPaused {
					break
				}
				x, runErr = exec.Signal(ctx, x.ID, sig)
				printStep(out, sig.Event, x)
			}

			if trace {
				for _, r := range history.Records(x.ID) {
					fmt.Fprintf(out, "  #%-3d %-10s %-20s %s\n", r.Sequence, r.FlowID, r.Type, r.StateID)
				}
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(x); err != nil {
				return err
			}
			return runErr
		},
	}
	f := cmd.Flags()
	f.BoolVar(&fromStore, "from-store", false, "Load flows from the document catalog")
	f.StringVar(&inputJSON, "input", "", "Initial flow scope as a JSON object")
	f.StringArrayVar(&events, "event", nil, "Event to signal when paused (repeatable)")
	f.BoolVar(&trace, "trace", false, "Print the execution history")
	f.IntVar(&maxSteps, "max-steps", engine.DefaultMaxSteps, "States entered per start or signal before failing")
	f.StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")
	return cmd
}

func parseSignal(raw string) (schema.Signal, error) {
	name, payload, hasPayload := strings.Cut(raw, "=")
	sig := schema.Signal{Event: strings.TrimSpace(name)}
	if sig.Event == "" {
		return sig, fmt.Errorf("--event %q: empty event name", raw)
	}
	if hasPayload {
		m, err := parseObject(payload)
		if err != nil {
			return sig, fmt.Errorf("--event %q: %w", raw, err)
		}
		sig.Payload = m
	}
	return sig, nil
}

func printStep(w io.Writer, label string, x *engine.Execution) {
	_, state := x.CurrentState()
	line := fmt.Sprintf("%-12s %-8s state=%s", label, x.Status, state)
	if x.View != nil {
		line += " view=" + x.View.Name
	}
	if x.Error != nil {
		line += " error=" + x.Error.Error()
	}
	fmt.Fprintln(w, line)
}
