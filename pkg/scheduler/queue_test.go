package scheduler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/instance"
	"github.com/frostlang/frost/pkg/namespace"
	"github.com/frostlang/frost/pkg/plugin"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/scheduler"
	"github.com/frostlang/frost/pkg/statements"
	"github.com/frostlang/frost/pkg/types"
	"github.com/frostlang/frost/pkg/values"
)

func newTestContext(t *testing.T, world *instance.World) *ast.ExecutionContext {
	t.Helper()
	ns := namespace.Root()
	resolver := namespace.NewNamespacedResolver(map[string]types.Type{}, ns)
	sink := ast.NewSink(diagnostics.NewDiagnostics(), world, plugin.NewRegistry())
	return ast.NewExecutionContext(ns, resolver, sink, nil)
}

func hostDefinition() *types.EntityDefinition {
	def := types.NewEntityDefinition("Host")
	_ = def.AddAttribute(&types.AttributeDef{Name: "name", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}})
	_ = def.AddAttribute(&types.AttributeDef{Name: "value", TypeName: "string", Nullable: true, Multiplicity: types.Multiplicity{Lo: 0, Hi: 1}})
	def.Indices = []types.IndexDef{{Attributes: []string{"name"}}}

	table := types.Builtins()
	table["Host"] = def
	if err := def.Normalize(namespace.NewBasicResolver(table)); err != nil {
		panic(err)
	}
	return def
}

// S1 — two Construct calls with the same index key must collapse into one
// instance even though neither blocks on anything (§8 scenario S1).
func TestRun_ConstructDedupesOnMatchingIndexKey(t *testing.T) {
	world := instance.NewWorld()
	ctx := newTestContext(t, world)
	q := scheduler.NewQueue()

	nameLiteral1 := ctx.Declare("name1", types.TString)
	nameLiteral2 := ctx.Declare("name2", types.TString)
	h1 := ctx.Declare("h1", nil)
	h2 := ctx.Declare("h2", nil)

	def := hostDefinition()

	q.Enqueue(
		&statements.Literal{Value: values.String("a"), Target: nameLiteral1, Loc: diagnostics.Location{Line: 1}},
		&statements.Literal{Value: values.String("a"), Target: nameLiteral2, Loc: diagnostics.Location{Line: 2}},
		&statements.Construct{
			Def:    def,
			Kwargs: map[string]*runtime.ResultVariable{"name": nameLiteral1},
			Target: h1,
			Loc:    diagnostics.Location{Line: 1},
		},
		&statements.Construct{
			Def:    def,
			Kwargs: map[string]*runtime.ResultVariable{"name": nameLiteral2},
			Target: h2,
			Loc:    diagnostics.Location{Line: 2},
		},
	)

	diags := scheduler.Run(context.Background(), ctx, q, scheduler.DefaultConfig(), nil, "test")
	require.True(t, diags.Empty(), diags.Error())

	store := world.StoreFor(def)
	assert.Len(t, store.AllInstances(), 1)

	v1, err := h1.Get()
	require.NoError(t, err)
	v2, err := h2.Get()
	require.NoError(t, err)
	assert.True(t, v1.Equal(v2))
}

// TestRun_IndexLookupBlocksThenResolves exercises the index-lookup-miss
// Pending() path: a lookup that runs before the matching Construct must
// wait, not fail, and must resolve once the instance is claimed.
func TestRun_IndexLookupBlocksThenResolves(t *testing.T) {
	world := instance.NewWorld()
	ctx := newTestContext(t, world)
	q := scheduler.NewQueue()

	def := hostDefinition()

	nameKey := ctx.Declare("key", types.TString)
	nameVal := ctx.Declare("val", types.TString)
	found := ctx.Declare("found", nil)
	constructed := ctx.Declare("constructed", nil)

	lookup := &statements.IndexLookupRef{
		Def:       def,
		AttrNames: []string{"name"},
		Keys:      []*runtime.ResultVariable{nameKey},
		Target:    found,
		Loc:       diagnostics.Location{Line: 1},
	}

	// The key is bound first, so the lookup runs with every key Bound
	// before the construct has run: it misses, must return Pending and get
	// woken once the index is claimed.
	q.Enqueue(
		&statements.Literal{Value: values.String("web1"), Target: nameKey, Loc: diagnostics.Location{Line: 1}},
		lookup,
		&statements.Literal{Value: values.String("web1"), Target: nameVal, Loc: diagnostics.Location{Line: 2}},
		&statements.Construct{
			Def:    def,
			Kwargs: map[string]*runtime.ResultVariable{"name": nameVal},
			Target: constructed,
			Loc:    diagnostics.Location{Line: 2},
		},
	)

	diags := scheduler.Run(context.Background(), ctx, q, scheduler.DefaultConfig(), nil, "test")
	require.True(t, diags.Empty(), diags.Error())

	v, err := found.Get()
	require.NoError(t, err)
	ref, ok := v.Entity_()
	require.True(t, ok)
	assert.Equal(t, "Host", ref.EntityName())
}

// A list RV that never receives enough inserts must freeze Underfilled
// rather than hang the fixpoint forever (§4.4 step 4, §8 invariant 4).
func TestRun_TerminatingFreezeReportsUnderfill(t *testing.T) {
	world := instance.NewWorld()
	ctx := newTestContext(t, world)
	q := scheduler.NewQueue()

	// No RegisterProducer call: outstanding stays 0, so Freeze succeeds
	// (no producer ever promised a value) but Underfilled() reports true
	// because the list never reached its minimum of 1 element.
	lv := runtime.NewListResultVariable(types.TString, types.Multiplicity{Lo: 1, Hi: -1})
	q.ZeroWaiters = append(q.ZeroWaiters, lv)

	diags := scheduler.Run(context.Background(), ctx, q, scheduler.DefaultConfig(), nil, "test")
	require.False(t, diags.Empty())
	found := false
	for _, d := range diags.All() {
		if d.Kind == diagnostics.KindMultiplicityUnderfill {
			found = true
		}
	}
	assert.True(t, found, "expected a MultiplicityUnderfill diagnostic")
}
