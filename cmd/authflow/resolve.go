package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rendis/authflow/internal/engine"
)

func newResolveCmd(getApp func() *app) *cobra.Command {
	var (
		fromStore bool
		dataJSON  string
	)
	cmd := &cobra.Command{
		Use:   "resolve <flow> <state> [event]",
		Short: "Print the state an event leads to",
		Long:  `Resolves the first matching transition of a state. --data supplies the evaluation data seen by predicate transitions, e.g. '{"request":{"ticket":"TGT-1"}}'.`,
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp()
			if err := a.initialize(cmd.Context(), fromStore); err != nil {
				return err
			}
			f, err := a.flow(args[0])
			if err != nil {
				return err
			}
			var event string
			if len(args) == 3 {
				event = args[2]
			}
			data, err := parseObject(dataJSON)
			if err != nil {
				return fmt.Errorf("--data: %w", err)
			}

			target, err := engine.Resolve(cmd.Context(), f, args[1], event, data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), target)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStore, "from-store", false, "Load flows from the document catalog")
	cmd.Flags().StringVar(&dataJSON, "data", "", "Evaluation data as a JSON object")
	return cmd
}

func parseObject(raw string) (map[string]any, error) {
	if raw == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, err
	}
	return m, nil
}
