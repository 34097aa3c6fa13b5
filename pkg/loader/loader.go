// Package loader implements the two-phase load described in §4.5,
// grounded on original_source's Scheduler.define_types/run split: Phase A
// builds the complete namespace/type skeleton and normalizes every type
// (resolving forward references and flattening inheritance) before any
// statement runs; Phase B then allocates one ExecutionContext and Queue
// per module and hands its statements to the scheduler. Phase A must
// finish, with no global diagnostic, before Phase B begins — a forward
// type reference a statement makes must always resolve, because by the
// time Phase B starts every type in the compile is already registered
// and normalized.
package loader

import (
	"context"
	"fmt"
	"sort"

	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/namespace"
	"github.com/frostlang/frost/pkg/scheduler"
	"github.com/frostlang/frost/pkg/telemetry"
	"github.com/frostlang/frost/pkg/types"
)

// Module is one compilation unit: the namespace it declares its types
// and statements into, its Phase A definitions, and its Phase B
// executable statements (§6 external interfaces).
type Module struct {
	Namespace   *namespace.Namespace
	Definitions []ast.DefinitionStatement
	Statements  []ast.Statement
}

// Program is every module in one compile, keyed by module name.
type Program struct {
	Modules map[string]Module
}

// Result is what Phase B hands off to the scheduler: one ExecutionContext
// and one seeded Queue per module, in the same module-name keying as
// Program.Modules.
type Result struct {
	Contexts map[string]*ast.ExecutionContext
	Queues   map[string]*scheduler.Queue
}

// Load runs Phase A then Phase B against program, sharing sink across
// every module's ExecutionContext (§3's Ownership note: one Sink per
// compile). It returns as much of Result as Phase B managed to build
// alongside a diagnostics report; callers must check Fatal() before
// trusting partial results — a Phase A failure (unresolved type, cyclic
// inheritance) means Phase B never ran at all. Telemetry, if any, is
// expected to already be attached to ctx via Telemetry.WithContext — Load
// itself only derives phase spans/logging from it (§4.5 expansion).
func Load(ctx context.Context, program *Program, sink *ast.Sink) (*Result, *diagnostics.Diagnostics) {
	diags := diagnostics.NewDiagnostics()

	phaseACtx := telemetry.WithPhaseContext(ctx, "phase_a", moduleSummary(program))
	table, root := runPhaseA(program, diags)
	telemetry.EndPhaseContext(phaseACtx, phaseErr(diags))

	if diags.Fatal() {
		return &Result{}, diags
	}

	phaseBCtx := telemetry.WithPhaseContext(ctx, "phase_b", moduleSummary(program))
	result := runPhaseB(program, sink, table, root)
	telemetry.EndPhaseContext(phaseBCtx, nil)

	return result, diags
}

func phaseErr(diags *diagnostics.Diagnostics) error {
	if diags.Fatal() {
		return fmt.Errorf("%s", diags.Error())
	}
	return nil
}

func moduleSummary(program *Program) string {
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

// runPhaseA builds the flat type table (primitives plus every module's
// definitions), rejects cyclic inheritance before it can stack-overflow
// EntityDefinition.Normalize, then normalizes every type against a
// namespaced resolver rooted at the first module's namespace tree
// (original_source: "give type info to all types, to normalize blocks
// inside them").
func runPhaseA(program *Program, diags *diagnostics.Diagnostics) (map[string]types.Type, *namespace.Namespace) {
	table := types.Builtins()

	names := sortedModuleNames(program)
	var root *namespace.Namespace
	for _, name := range names {
		mod := program.Modules[name]
		if root == nil && mod.Namespace != nil {
			root = mod.Namespace.Root()
		}
		for _, def := range mod.Definitions {
			if err := def.DefineIn(mod.Namespace, table); err != nil {
				diags.Add(diagnostics.New(diagnostics.KindDuplicate, diagnostics.Location{}, "%v", err))
			}
		}
	}
	if root == nil {
		root = namespace.Root()
	}

	detectInheritanceCycles(table, diags)
	if diags.Fatal() {
		return table, root
	}

	resolver := namespace.NewNamespacedResolver(table, root)
	for name, t := range table {
		if err := t.Normalize(resolver); err != nil {
			diags.Add(types.NewLocatedTypeError(diagnostics.Location{}, name, err))
		}
	}

	return table, root
}

// detectInheritanceCycles walks every EntityDefinition's ParentNames as a
// graph and reports a KindDuplicate diagnostic for each cycle found,
// before Normalize ever runs — Normalize's own `normalized = true` guard
// breaks the recursion but does not report the cycle as an error (§4.5
// expansion: "Phase A additionally builds the inheritance DAG and rejects
// cycles").
func detectInheritanceCycles(table map[string]types.Type, diags *diagnostics.Diagnostics) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}

	var visit func(name string, path []string) bool
	visit = func(name string, path []string) bool {
		switch color[name] {
		case black:
			return false
		case gray:
			diags.Add(diagnostics.New(diagnostics.KindDuplicate, diagnostics.Location{},
				"cyclic inheritance detected: %v -> %s", path, name))
			return true
		}
		def, ok := table[name].(*types.EntityDefinition)
		if !ok {
			return false
		}
		color[name] = gray
		for _, parent := range def.ParentNames {
			if visit(parent, append(path, name)) {
				return true
			}
		}
		color[name] = black
		return false
	}

	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if color[name] == white {
			visit(name, nil)
		}
	}
}

// runPhaseB allocates one ExecutionContext per module, scoped to that
// module's namespace with a resolver sharing Phase A's complete type
// table, and seeds a Queue with its statements (§4.3/§4.4 handoff point).
func runPhaseB(program *Program, sink *ast.Sink, table map[string]types.Type, root *namespace.Namespace) *Result {
	baseResolver := namespace.NewNamespacedResolver(table, root)

	result := &Result{
		Contexts: map[string]*ast.ExecutionContext{},
		Queues:   map[string]*scheduler.Queue{},
	}
	for name, mod := range program.Modules {
		ns := mod.Namespace
		if ns == nil {
			ns = root
		}
		resolver := baseResolver.WithNamespace(ns)
		ectx := ast.NewExecutionContext(ns, resolver, sink, nil)
		q := scheduler.NewQueue()
		q.Enqueue(mod.Statements...)

		result.Contexts[name] = ectx
		result.Queues[name] = q
	}
	return result
}

func sortedModuleNames(program *Program) []string {
	names := make([]string, 0, len(program.Modules))
	for name := range program.Modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
