package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-graphviz"
	"github.com/spf13/cobra"

	"github.com/rendis/authflow/internal/diagram"
	"github.com/rendis/authflow/internal/engine"
	"github.com/rendis/authflow/pkg/schema"
)

func newDiagramCmd(getApp func() *app) *cobra.Command {
	var (
		fromStore bool
		format    string
		output    string
		expand    bool
		inputJSON string
		events    []string
	)
	cmd := &cobra.Command{
		Use:   "diagram <flow>",
		Short: "Render a flow graph as ascii, mermaid, png or svg",
		Long: `Renders the states and transitions of flow. With --input or --event the
flow is first driven like "run" and the path it took is highlighted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			ctx := cmd.Context()
			if err := a.initialize(ctx, fromStore); err != nil {
				return err
			}
			f, err := a.flow(args[0])
			if err != nil {
				return err
			}

			opts := diagram.Options{Registry: a.builder.Registry(), ExpandSubflows: expand}
			if inputJSON != "" || len(events) > 0 {
				opts.Overlay, err = traceOverlay(cmd, a, f.ID, inputJSON, events)
				if err != nil {
					return err
				}
			}

			model, err := diagram.Build(f, opts)
			if err != nil {
				return err
			}

			var out []byte
			switch format {
			case "ascii":
				out = []byte(diagram.RenderASCII(model))
			case "mermaid":
				out = []byte(diagram.RenderMermaid(model))
			case "png":
				out, err = diagram.RenderImage(ctx, model, graphviz.PNG)
			case "svg":
				out, err = diagram.RenderImage(ctx, model, graphviz.SVG)
			default:
				return fmt.Errorf("unknown format %q (ascii, mermaid, png, svg)", format)
			}
			if err != nil {
				return err
			}

			if output == "" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStore, "from-store", false, "Load flows from the document catalog")
	cmd.Flags().StringVarP(&format, "format", "f", "ascii", "Output format: ascii, mermaid, png or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&expand, "expand", false, "Inline one level of literal subflows")
	cmd.Flags().StringVar(&inputJSON, "input", "", "JSON object of initial flow variables")
	cmd.Flags().StringArrayVar(&events, "event", nil, "Event to deliver, name or name=<json> (repeatable)")
	return cmd
}

// traceOverlay drives flowID and returns the overlay of the states visited.
// A failed run still yields an overlay.
func traceOverlay(cmd *cobra.Command, a *app, flowID, inputJSON string, events []string) (map[string]*diagram.StatusOverlay, error) {
	input, err := parseObject(inputJSON)
	if err != nil {
		return nil, fmt.Errorf("--input: %w", err)
	}
	history := engine.NewHistory()
	exec := engine.NewExecutor(a.builder.Registry(), engine.Config{Logger: a.log, Recorder: history})

	ctx := cmd.Context()
	x, runErr := exec.Start(ctx, flowID, input)
	if x == nil {
		return nil, runErr
	}
	for _, ev := range events {
		if runErr != nil || x.Status != schema.ExecutionStatusPaused {
			break
		}
		sig, err := parseSignal(ev)
		if err != nil {
			return nil, err
		}
		x, runErr = exec.Signal(ctx, x.ID, sig)
	}
	if runErr != nil {
		a.log.Warn("traced run did not complete cleanly", "error", runErr)
	}
	return diagram.HistoryOverlay(flowID, history.Records(x.ID), x), nil
}
