package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signalnine/promptbench/internal/strategy"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("Strategies:")
			for _, name := range strategy.Names() {
				fmt.Printf("  - %-20s %s\n", name, strategy.Describe(name))
			}
			fmt.Printf("\nUse --strategy %s to run them all in sequence.\n", strategy.All)
			return nil
		},
	}
}
