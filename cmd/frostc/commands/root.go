package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	configPath string
	jsonOutput bool
)

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "frostc",
		Short: "Frost declarative-compiler evaluation engine",
		Long: `frostc drives the Frost evaluation engine end to end: it loads a
module's type definitions and statements, runs the scheduler to a
fixpoint, finalizes every entity instance, and exports the resulting
resource set.

There is no lexer/parser in this binary — "compile" runs a named
built-in fixture program rather than reading source files from disk.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "compiler config file path (YAML)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print resources as JSON")

	rootCmd.AddCommand(newCompileCommand())
	rootCmd.AddCommand(newFixturesCommand())

	return rootCmd
}
