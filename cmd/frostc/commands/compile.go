package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/frostlang/frost/pkg/compiler"
	"github.com/frostlang/frost/pkg/config"
	"github.com/frostlang/frost/pkg/telemetry"
	"github.com/frostlang/frost/pkg/values"
)

func newCompileCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <fixture>",
		Short: "Run one of the built-in fixture programs through the compiler",
		Long: `compile loads a named fixture's namespace and statement tree, runs it
through the loader, scheduler and exporter, and prints the diagnostics
produced alongside the resulting resource set.

See 'frostc fixtures' for the list of fixture names.`,
		Example: `  frostc compile hosts
  frostc compile relation --json
  frostc compile fleet --config ./frostc.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), args[0])
		},
	}
	return cmd
}

func runCompile(ctx context.Context, fixtureName string) error {
	fixture, ok := fixtures[fixtureName]
	if !ok {
		return fmt.Errorf("unknown fixture %q (see 'frostc fixtures')", fixtureName)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tel, err := telemetry.NewTelemetry(cfg.ToTelemetryConfig())
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer tel.Shutdown(ctx)
	ctx = tel.WithContext(ctx)

	program, plugins := fixture.Build()

	log.Info().Str("fixture", fixtureName).Msg("running compile")
	result, diags := compiler.Compile(ctx, program, plugins, cfg)

	for _, d := range diags.All() {
		log.Warn().Str("kind", string(d.Kind)).Msg(d.Error())
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Resources)
	}

	printResources(result)
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	return config.Load(configPath)
}

func printResources(result *compiler.Result) {
	entities := make([]string, 0, len(result.Resources))
	for name := range result.Resources {
		entities = append(entities, name)
	}
	sort.Strings(entities)

	for _, entity := range entities {
		fmt.Printf("%s:\n", entity)
		for _, res := range result.Resources[entity] {
			fmt.Printf("  %s\n", res.ID)
			for _, name := range sortedValueKeys(res.Attributes) {
				fmt.Printf("    %s = %s\n", name, res.Attributes[name])
			}
			for _, name := range sortedRelationKeys(res.Relations) {
				fmt.Printf("    %s -> %v\n", name, res.Relations[name])
			}
		}
	}
}

func sortedValueKeys(m map[string]values.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRelationKeys(m map[string][]values.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
