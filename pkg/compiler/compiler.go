// Package compiler implements the one public entry point of §6:
// composing pkg/loader, pkg/scheduler, instance finalize and pkg/exporter
// into a single Compile call, analogous to original_source's
// Scheduler.run() driving define_types -> run -> freeze_all end to end.
package compiler

import (
	"context"
	"fmt"
	"sort"

	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/config"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/exporter"
	"github.com/frostlang/frost/pkg/instance"
	"github.com/frostlang/frost/pkg/loader"
	"github.com/frostlang/frost/pkg/plugin"
	"github.com/frostlang/frost/pkg/scheduler"
	"github.com/frostlang/frost/pkg/telemetry"
)

// Result is everything one compile produces: the frozen instances, ready
// for export, alongside the per-module contexts a caller can still
// inspect (e.g. a REPL re-running a single module's statements).
type Result struct {
	Contexts  map[string]*ast.ExecutionContext
	Resources map[string][]*exporter.Resource
}

// Compile runs the loader, drives every module's queue through the
// scheduler, finalizes every instance store, and exports the resulting
// resources. plugins may be nil, in which case a fresh empty registry
// (built-ins only) is used. cfg may be nil, in which case config.Default
// applies. Telemetry, if attached to ctx via Telemetry.WithContext,
// is used for the compile-wide span/metrics/events; a bare context.Background
// works with telemetry fully disabled.
func Compile(ctx context.Context, program *loader.Program, plugins *plugin.Registry, cfg *config.Config) (*Result, *diagnostics.Diagnostics) {
	if cfg == nil {
		cfg = config.Default()
	}
	if plugins == nil {
		plugins = plugin.NewRegistry()
	}

	compileID := firstModuleName(program)
	ctx = telemetry.WithCompileContext(ctx, compileID, compileID)

	diags := diagnostics.NewDiagnostics()
	world := instance.NewWorld()
	sink := ast.NewSink(diags, world, plugins)

	loadResult, loadDiags := loader.Load(ctx, program, sink)
	for _, d := range loadDiags.All() {
		diags.Add(d)
	}
	if diags.Fatal() {
		telemetry.EndCompileContext(ctx, compileID, "failed", fmt.Errorf("%s", diags.Error()))
		return &Result{}, diags
	}

	schedCfg := cfg.ToSchedulerConfig()
	tel := telemetry.FromTelemetryContext(ctx)

	for _, name := range sortedContextNames(loadResult.Contexts) {
		runDiags := scheduler.Run(ctx, loadResult.Contexts[name], loadResult.Queues[name], schedCfg, tel, name)
		for _, d := range runDiags.All() {
			diags.Add(d)
		}
	}

	if diags.Fatal() {
		telemetry.EndCompileContext(ctx, compileID, "failed", fmt.Errorf("%s", diags.Error()))
		return &Result{Contexts: loadResult.Contexts}, diags
	}

	finalizeStores(world, diags)

	resources, exportDiags := exporter.Export(world)
	for _, d := range exportDiags.All() {
		diags.Add(d)
	}

	status := "succeeded"
	if !diags.Empty() {
		status = "succeeded_with_diagnostics"
	}
	telemetry.EndCompileContext(ctx, compileID, status, nil)

	return &Result{Contexts: loadResult.Contexts, Resources: resources}, diags
}

// finalizeStores runs §4.4 step 5 across every definition's store: freeze
// every remaining slot and report any index lookup that never found a
// match as NotFound (§4.2: "fails with NotFound at freeze time").
func finalizeStores(world *instance.World, diags *diagnostics.Diagnostics) {
	for _, name := range sortedStoreNames(world) {
		store := world.Stores()[name]
		_, storeDiags := store.Finalize()
		for _, d := range storeDiags.All() {
			diags.Add(d)
		}
		for range store.UnresolvedLookups() {
			diags.Add(diagnostics.New(diagnostics.KindNotFound, diagnostics.Location{},
				"index lookup on %s never matched an instance", name))
		}
	}
}

func firstModuleName(program *loader.Program) string {
	if program == nil || len(program.Modules) == 0 {
		return "<empty>"
	}
	names := make([]string, 0, len(program.Modules))
	for name := range program.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names[0]
}

func sortedContextNames(contexts map[string]*ast.ExecutionContext) []string {
	names := make([]string, 0, len(contexts))
	for name := range contexts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedStoreNames(world *instance.World) []string {
	stores := world.Stores()
	names := make([]string, 0, len(stores))
	for name := range stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
