// Package ast defines the compiled statement tree: the node kinds from
// §4.3's contract table plus the kinds SPEC_FULL.md adds to make the
// scenarios in §8 executable. A node here is already past parsing — it
// carries resolved-enough shape (names, not yet types) for Phase A/B of
// pkg/loader to normalize and for pkg/scheduler to run.
package ast

import (
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/instance"
	"github.com/frostlang/frost/pkg/namespace"
	"github.com/frostlang/frost/pkg/plugin"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/types"
)

// Sink is the compile-wide state every ExecutionContext shares: the
// diagnostic report, the instance world, the plugin registry, and the set
// of statements woken this tick. It exists separately from
// ExecutionContext because the lexical scope nests (Child) but this state
// does not — there is exactly one Sink per compiler.Compile call.
type Sink struct {
	Diagnostics *diagnostics.Diagnostics
	World       *instance.World
	Plugins     *plugin.Registry
	woken       []Statement
}

func NewSink(diags *diagnostics.Diagnostics, world *instance.World, plugins *plugin.Registry) *Sink {
	return &Sink{Diagnostics: diags, World: world, Plugins: plugins}
}

// Wake records the statements released by a Set/Insert/Freeze call as
// ready to run again. waiters holds runtime.Waiter values that are, in
// practice, always the ast.Statement that previously blocked and called
// Await on the RV; anything else is a programming error elsewhere in this
// module and is silently dropped rather than panicking the compile.
func (s *Sink) Wake(waiters []runtime.Waiter) {
	for _, w := range waiters {
		if stmt, ok := w.(Statement); ok {
			s.woken = append(s.woken, stmt)
		}
	}
}

// DrainWoken returns every statement woken since the last drain and
// clears the set; pkg/scheduler calls this once per Runnable-queue item
// it executes and after every freeze.
func (s *Sink) DrainWoken() []Statement {
	w := s.woken
	s.woken = nil
	return w
}

// ExecutionContext is the lexical scope a block of statements runs in: a
// name -> ResultVariable table plus the namespace used to resolve type
// names. Statements weakly reference the RVs they read and strongly own
// (create) those they write, per §3's Ownership note.
type ExecutionContext struct {
	Namespace *namespace.Namespace
	Resolver  *namespace.NamespacedResolver
	Sink      *Sink
	parent    *ExecutionContext
	locals    map[string]*runtime.ResultVariable
}

func NewExecutionContext(ns *namespace.Namespace, resolver *namespace.NamespacedResolver, sink *Sink, parent *ExecutionContext) *ExecutionContext {
	return &ExecutionContext{
		Namespace: ns,
		Resolver:  resolver,
		Sink:      sink,
		parent:    parent,
		locals:    map[string]*runtime.ResultVariable{},
	}
}

// Declare creates (or returns, if already declared in this exact scope) the
// RV bound to name. Re-declaring in the same scope is idempotent, matching
// the re-entrant-execute requirement (§4.3: "re-executing must be safe").
func (c *ExecutionContext) Declare(name string, domain types.Type) *runtime.ResultVariable {
	if rv, ok := c.locals[name]; ok {
		return rv
	}
	rv := runtime.NewResultVariable(domain)
	c.locals[name] = rv
	return rv
}

// Lookup resolves name in this scope, then each enclosing scope in turn.
func (c *ExecutionContext) Lookup(name string) (*runtime.ResultVariable, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if rv, ok := ctx.locals[name]; ok {
			return rv, true
		}
	}
	return nil, false
}

// Child opens a new nested scope, e.g. a for-loop body iteration or an
// implementation block (§4.3: "emits one copy of its body per element with
// a fresh local scope").
func (c *ExecutionContext) Child() *ExecutionContext {
	return NewExecutionContext(c.Namespace, c.Resolver, c.Sink, c)
}

// Statement is satisfied by every compiled node. Execute either completes
// (side effects already applied) and returns runtime.Ready, or returns
// runtime.Blocked(rv) — the design-note replacement (§9) for the source's
// UnsetException. Re-executing after being woken must be side-effect safe;
// concrete statements achieve this by keying their effect (e.g. Construct
// keys on its own already-created instance, not on re-running the
// allocation).
type Statement interface {
	Execute(ctx *ExecutionContext) runtime.Poll
	Location() diagnostics.Location
}

// DefinitionStatement is the Phase A subset: entity/typedef/index/relation
// declarations that build the namespace skeleton before any executable
// statement runs (§4.5 Phase A).
type DefinitionStatement interface {
	DefineIn(ns *namespace.Namespace, table map[string]types.Type) error
}
