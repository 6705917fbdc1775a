package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comalice/activechart/config"
	"github.com/comalice/activechart/internal/production"
)

func newVizCmd() *cobra.Command {
	var (
		state   string
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "viz <topology.yaml>",
		Short: "Render a topology as Graphviz DOT",
		Long: `The viz command prints a topology as a Graphviz digraph, or as JSON
with --json.

Example:
  aodemo viz boards/blinky.yaml | dot -Tsvg > blinky.svg
  aodemo viz boards/button.yaml --state pressed.held`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topo, err := config.LoadTopology(args[0])
			if err != nil {
				return err
			}
			v := production.NewDOTVisualizer()
			if jsonOut {
				data, err := v.ExportJSON(topo)
				if err != nil {
					return fmt.Errorf("export json: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), v.ExportDOT(topo, state))
			return err
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "Highlight this active state path")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the topology as JSON")
	return cmd
}
