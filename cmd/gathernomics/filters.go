package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gathernomics/internal/core"
)

func newFiltersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the registered table filters",
		Long: `Lists every filter id that a table's data_filter may reference.

Example:
  gathernomics filters`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDESCRIPTION")
			for _, def := range core.All() {
				fmt.Fprintf(w, "%s\t%s\n", def.Key, def.Label)
			}
			return w.Flush()
		},
	}
}
