package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/homesim/homesim/sim"
	"github.com/homesim/homesim/sim/scenario"
)

// typesCmd lists the entity types a scenario may use
var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List entity types with their step size, parameters and attributes",
	Run: func(cmd *cobra.Command, args []string) {
		printTypes(cmd.OutOrStdout(), scenario.DefaultCatalog())
	},
}

func printTypes(w io.Writer, c *sim.Catalog) {
	for _, name := range c.Names() {
		t, _ := c.Lookup(name)
		fmt.Fprintf(w, "%s (step %ds)\n", t.Name, t.StepSize)
		fmt.Fprintf(w, "  params:  %s\n", strings.Join(t.Schema.Params, ", "))
		fmt.Fprintf(w, "  inputs:  %s\n", formatAttrs(t.Schema.Inputs, true))
		fmt.Fprintf(w, "  outputs: %s\n", formatAttrs(t.Schema.Outputs, false))
	}
}

func formatAttrs(attrs []sim.AttrSpec, withAgg bool) string {
	parts := make([]string, len(attrs))
	for i, a := range attrs {
		parts[i] = a.Name + ":" + a.Kind.String()
		if withAgg && a.Kind == sim.KindFloat {
			parts[i] += "/" + a.Agg.String()
		}
	}
	return strings.Join(parts, ", ")
}
