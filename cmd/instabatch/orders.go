package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"instabatch/internal/action"
)

func newOrdersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List the built-in batching methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			for _, name := range action.OrderNames() {
				o, _ := action.LookupOrder(name)
				fmt.Fprintf(w, "%-5s %s\n", name, o)
			}
			return nil
		},
	}
}
