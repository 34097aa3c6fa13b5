package loader_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/instance"
	"github.com/frostlang/frost/pkg/loader"
	"github.com/frostlang/frost/pkg/namespace"
	"github.com/frostlang/frost/pkg/plugin"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/scheduler"
	"github.com/frostlang/frost/pkg/statements"
	"github.com/frostlang/frost/pkg/types"
	"github.com/frostlang/frost/pkg/values"
)

func newSink() *ast.Sink {
	return ast.NewSink(diagnostics.NewDiagnostics(), instance.NewWorld(), plugin.NewRegistry())
}

func TestLoad_NormalizesTypesThenRunsEachModule(t *testing.T) {
	root := namespace.Root()
	mainNS := root.Child("main")

	host := types.NewEntityDefinition("main::Host")
	require.NoError(t, host.AddAttribute(&types.AttributeDef{
		Name: "name", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1},
	}))

	rv := runtime.NewResultVariable(types.TString)

	program := &loader.Program{
		Modules: map[string]loader.Module{
			"main": {
				Namespace:   mainNS,
				Definitions: []ast.DefinitionStatement{&statements.EntityDef{Def: host}},
				Statements: []ast.Statement{
					&statements.Literal{Value: values.String("web1"), Target: rv, Loc: diagnostics.Location{Line: 1}},
				},
			},
		},
	}

	sink := newSink()
	result, diags := loader.Load(context.Background(), program, sink)
	require.True(t, diags.Empty(), diags.Error())
	require.Contains(t, result.Contexts, "main")
	require.Contains(t, result.Queues, "main")

	q := result.Queues["main"]
	ectx := result.Contexts["main"]
	runDiags := scheduler.Run(context.Background(), ectx, q, scheduler.DefaultConfig(), nil, "main")
	require.True(t, runDiags.Empty(), runDiags.Error())

	v, err := rv.Get()
	require.NoError(t, err)
	s, ok := v.String_()
	require.True(t, ok)
	assert.Equal(t, "web1", s)
}

func TestLoad_RejectsCyclicInheritance(t *testing.T) {
	root := namespace.Root()
	mainNS := root.Child("main")

	a := types.NewEntityDefinition("main::A")
	a.ParentNames = []string{"main::B"}
	b := types.NewEntityDefinition("main::B")
	b.ParentNames = []string{"main::A"}

	program := &loader.Program{
		Modules: map[string]loader.Module{
			"main": {
				Namespace: mainNS,
				Definitions: []ast.DefinitionStatement{
					&statements.EntityDef{Def: a},
					&statements.EntityDef{Def: b},
				},
			},
		},
	}

	sink := newSink()
	result, diags := loader.Load(context.Background(), program, sink)
	require.False(t, diags.Empty())
	assert.True(t, diags.Fatal())
	assert.Empty(t, result.Contexts, "Phase B must not run after a Phase A fatal error")

	found := false
	for _, d := range diags.All() {
		if d.Kind == diagnostics.KindDuplicate {
			found = true
		}
	}
	assert.True(t, found, "expected a Duplicate diagnostic for the inheritance cycle")
}
