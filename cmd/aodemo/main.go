// Command aodemo runs a board of active objects on the simulated kernel
// and renders their topologies.
package main

import (
	"github.com/spf13/cobra"

	"github.com/comalice/activechart/config"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aodemo",
		Short: "Run active objects on a simulated cooperative kernel",
		Long: `aodemo loads a board file describing the kernel, the processor and a set
of active objects, each running a YAML state machine topology, and drives
them with a timer interrupt and a simulated button.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newVizCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		config.Exitf("Error: %v", err)
	}
}
