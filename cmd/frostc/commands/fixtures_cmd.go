package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newFixturesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fixtures",
		Short: "List the built-in fixture programs compile can run",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range sortedFixtureNames() {
				fmt.Printf("%-10s %s\n", name, fixtures[name].Description)
			}
			return nil
		},
	}
}
