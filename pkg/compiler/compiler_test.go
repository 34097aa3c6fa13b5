package compiler_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/compiler"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/loader"
	"github.com/frostlang/frost/pkg/namespace"
	"github.com/frostlang/frost/pkg/plugin"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/statements"
	"github.com/frostlang/frost/pkg/types"
	"github.com/frostlang/frost/pkg/values"
)

// builtinTable seeds a flat type table with the primitives plus every
// entity definition a scenario needs, matching what loader.runPhaseA
// would assemble from a real Phase A pass.
func builtinTable(defs ...*types.EntityDefinition) map[string]types.Type {
	table := types.Builtins()
	for _, d := range defs {
		table[d.Name()] = d
	}
	return table
}

func normalizeAll(table map[string]types.Type, root *namespace.Namespace) {
	resolver := namespace.NewNamespacedResolver(table, root)
	for _, t := range table {
		if err := t.Normalize(resolver); err != nil {
			panic(err)
		}
	}
}

func oneModuleProgram(ns *namespace.Namespace, stmts []ast.Statement) *loader.Program {
	return &loader.Program{
		Modules: map[string]loader.Module{
			"main": {Namespace: ns, Statements: stmts},
		},
	}
}

// TestCompile_SimpleConstructionDedupes is scenario S1: two constructors
// with the same index key must collapse into one instance.
func TestCompile_SimpleConstructionDedupes(t *testing.T) {
	root := namespace.Root()
	ns := root.Child("main")

	host := types.NewEntityDefinition("Host")
	require.NoError(t, host.AddAttribute(&types.AttributeDef{Name: "name", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}}))
	host.Indices = []types.IndexDef{{Attributes: []string{"name"}}}
	normalizeAll(builtinTable(host), root)

	ctx := ast.NewExecutionContext(ns, namespace.NewNamespacedResolver(builtinTable(host), root).WithNamespace(ns), ast.NewSink(diagnostics.NewDiagnostics(), nil, nil), nil)
	name1 := ctx.Declare("name1", types.TString)
	name2 := ctx.Declare("name2", types.TString)
	h1 := ctx.Declare("h1", nil)
	h2 := ctx.Declare("h2", nil)

	stmts := []ast.Statement{
		&statements.Literal{Value: values.String("a"), Target: name1, Loc: diagnostics.Location{Line: 1}},
		&statements.Literal{Value: values.String("a"), Target: name2, Loc: diagnostics.Location{Line: 2}},
		&statements.Construct{Def: host, Kwargs: map[string]*runtime.ResultVariable{"name": name1}, Target: h1, Loc: diagnostics.Location{Line: 1}},
		&statements.Construct{Def: host, Kwargs: map[string]*runtime.ResultVariable{"name": name2}, Target: h2, Loc: diagnostics.Location{Line: 2}},
	}

	program := oneModuleProgram(ns, stmts)
	result, diags := compiler.Compile(context.Background(), program, nil, nil)
	require.True(t, diags.Empty(), diags.Error())
	require.Len(t, result.Resources["Host"], 1)
}

// TestCompile_IndexCollisionReportsDoubleSet is scenario S2: the same
// index key constructed twice with a conflicting non-index attribute must
// fail with DoubleSet.
func TestCompile_IndexCollisionReportsDoubleSet(t *testing.T) {
	root := namespace.Root()
	ns := root.Child("main")

	host := types.NewEntityDefinition("Host")
	require.NoError(t, host.AddAttribute(&types.AttributeDef{Name: "name", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}}))
	require.NoError(t, host.AddAttribute(&types.AttributeDef{Name: "value", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}}))
	host.Indices = []types.IndexDef{{Attributes: []string{"name"}}}
	normalizeAll(builtinTable(host), root)

	ctx := ast.NewExecutionContext(ns, namespace.NewNamespacedResolver(builtinTable(host), root).WithNamespace(ns), ast.NewSink(diagnostics.NewDiagnostics(), nil, nil), nil)
	name1 := ctx.Declare("name1", types.TString)
	name2 := ctx.Declare("name2", types.TString)
	val1 := ctx.Declare("val1", types.TString)
	val2 := ctx.Declare("val2", types.TString)
	h1 := ctx.Declare("h1", nil)
	h2 := ctx.Declare("h2", nil)

	stmts := []ast.Statement{
		&statements.Literal{Value: values.String("a"), Target: name1, Loc: diagnostics.Location{Line: 1}},
		&statements.Literal{Value: values.String("a"), Target: name2, Loc: diagnostics.Location{Line: 2}},
		&statements.Literal{Value: values.String("x"), Target: val1, Loc: diagnostics.Location{Line: 1}},
		&statements.Literal{Value: values.String("y"), Target: val2, Loc: diagnostics.Location{Line: 2}},
		&statements.Construct{Def: host, Kwargs: map[string]*runtime.ResultVariable{"name": name1, "value": val1}, Target: h1, Loc: diagnostics.Location{Line: 1}},
		&statements.Construct{Def: host, Kwargs: map[string]*runtime.ResultVariable{"name": name2, "value": val2}, Target: h2, Loc: diagnostics.Location{Line: 2}},
	}

	program := oneModuleProgram(ns, stmts)
	_, diags := compiler.Compile(context.Background(), program, nil, nil)
	require.False(t, diags.Empty())
	found := false
	for _, d := range diags.All() {
		if d.Kind == diagnostics.KindDoubleSet {
			found = true
		}
	}
	assert.True(t, found, "expected a DoubleSet diagnostic")
}

// TestCompile_BidirectionalRelationMirrorsBothSides is scenario S3: a
// to-one relation assignment and its dual to-many producer must agree
// (there is no automatic mirroring in the statement runtime, so both
// halves are emitted explicitly — File.host and Host.files).
func TestCompile_BidirectionalRelationMirrorsBothSides(t *testing.T) {
	root := namespace.Root()
	ns := root.Child("main")

	host := types.NewEntityDefinition("Host")
	require.NoError(t, host.AddAttribute(&types.AttributeDef{Name: "name", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}}))
	file := types.NewEntityDefinition("File")

	require.NoError(t, file.AddRelation(&types.RelationDef{Name: "host", TargetName: "Host", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}, InverseName: "files"}))
	require.NoError(t, host.AddRelation(&types.RelationDef{Name: "files", TargetName: "File", Multiplicity: types.Multiplicity{Lo: 0, Hi: -1}, InverseName: "host"}))

	table := builtinTable(host, file)
	normalizeAll(table, root)

	ctx := ast.NewExecutionContext(ns, namespace.NewNamespacedResolver(table, root).WithNamespace(ns), ast.NewSink(diagnostics.NewDiagnostics(), nil, nil), nil)
	name1 := ctx.Declare("name1", types.TString)
	h1 := ctx.Declare("h1", nil)
	f1 := ctx.Declare("f1", nil)

	stmts := []ast.Statement{
		&statements.Literal{Value: values.String("a"), Target: name1, Loc: diagnostics.Location{Line: 1}},
		&statements.Construct{Def: host, Kwargs: map[string]*runtime.ResultVariable{"name": name1}, Target: h1, Loc: diagnostics.Location{Line: 1}},
		&statements.Construct{Def: file, Kwargs: map[string]*runtime.ResultVariable{}, Target: f1, Loc: diagnostics.Location{Line: 2}},
		&statements.RelationAssignSingle{Base: f1, Relation: "host", Value: h1, Loc: diagnostics.Location{Line: 2}},
		&statements.RelationAssign{Base: h1, Relation: "files", Value: f1, Loc: diagnostics.Location{Line: 2}},
	}

	program := oneModuleProgram(ns, stmts)
	result, diags := compiler.Compile(context.Background(), program, nil, nil)
	require.True(t, diags.Empty(), diags.Error())

	require.Len(t, result.Resources["Host"], 1)
	require.Len(t, result.Resources["File"], 1)

	hostRes := result.Resources["Host"][0]
	files := hostRes.Relations["files"]
	require.Len(t, files, 1)
	fileRef, ok := files[0].Entity_()
	require.True(t, ok)

	fileRes := result.Resources["File"][0]
	assert.Equal(t, fileRes.ID, fileRef.InstanceID())

	hostRef, ok := fileRes.Attributes["host"].Entity_()
	require.True(t, ok)
	assert.Equal(t, hostRes.ID, hostRef.InstanceID())
}

// TestCompile_ForLoopConstructsInInsertionOrder is scenario S4: a for
// loop over a literal list must emit one Construct per element, executed
// in list order.
func TestCompile_ForLoopConstructsInInsertionOrder(t *testing.T) {
	root := namespace.Root()
	ns := root.Child("main")

	host := types.NewEntityDefinition("Host")
	require.NoError(t, host.AddAttribute(&types.AttributeDef{Name: "name", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}}))
	normalizeAll(builtinTable(host), root)

	ctx := ast.NewExecutionContext(ns, namespace.NewNamespacedResolver(builtinTable(host), root).WithNamespace(ns), ast.NewSink(diagnostics.NewDiagnostics(), nil, nil), nil)

	a := ctx.Declare("a", types.TString)
	b := ctx.Declare("b", types.TString)
	c := ctx.Declare("c", types.TString)
	listRV := ctx.Declare("names", nil)

	loop := &statements.ForLoop{
		Iterable: listRV,
		LoopVar:  "name",
		Loc:      diagnostics.Location{Line: 1},
		Body: func(child *ast.ExecutionContext, element *runtime.ResultVariable) []ast.Statement {
			target := child.Declare("h", nil)
			return []ast.Statement{
				&statements.Construct{Def: host, Kwargs: map[string]*runtime.ResultVariable{"name": element}, Target: target, Loc: diagnostics.Location{Line: 2}},
			}
		},
	}

	stmts := []ast.Statement{
		&statements.Literal{Value: values.String("a"), Target: a, Loc: diagnostics.Location{Line: 1}},
		&statements.Literal{Value: values.String("b"), Target: b, Loc: diagnostics.Location{Line: 1}},
		&statements.Literal{Value: values.String("c"), Target: c, Loc: diagnostics.Location{Line: 1}},
		&statements.ListLiteral{Elements: []*runtime.ResultVariable{a, b, c}, Target: listRV, Loc: diagnostics.Location{Line: 1}},
		loop,
	}

	program := oneModuleProgram(ns, stmts)
	result, diags := compiler.Compile(context.Background(), program, nil, nil)
	require.True(t, diags.Empty(), diags.Error())

	require.Len(t, result.Resources["Host"], 3)
	var names []string
	for _, r := range result.Resources["Host"] {
		s, ok := r.Attributes["name"].String_()
		require.True(t, ok)
		names = append(names, s)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

// TestCompile_UnknownPluginResultPropagatesToFinalize is scenario S5: a
// plugin returning Unknown assigned to an attribute must not fail the
// compile; the attribute is exported carrying Unknown.
func TestCompile_UnknownPluginResultPropagatesToFinalize(t *testing.T) {
	root := namespace.Root()
	ns := root.Child("main")

	host := types.NewEntityDefinition("Host")
	require.NoError(t, host.AddAttribute(&types.AttributeDef{Name: "name", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}}))
	require.NoError(t, host.AddAttribute(&types.AttributeDef{Name: "ip", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}}))
	normalizeAll(builtinTable(host), root)

	registry := plugin.NewRegistry()
	registry.RegisterNative("deploy::allocate_ip", func(args []values.Value, kwargs map[string]values.Value) (values.Value, error) {
		return values.Unknown, nil
	})

	ctx := ast.NewExecutionContext(ns, namespace.NewNamespacedResolver(builtinTable(host), root).WithNamespace(ns), ast.NewSink(diagnostics.NewDiagnostics(), nil, registry), nil)
	name1 := ctx.Declare("name1", types.TString)
	ipRV := ctx.Declare("ip", nil)
	h1 := ctx.Declare("h1", nil)

	stmts := []ast.Statement{
		&statements.Literal{Value: values.String("a"), Target: name1, Loc: diagnostics.Location{Line: 1}},
		&statements.PluginCall{Name: "deploy::allocate_ip", Target: ipRV, Loc: diagnostics.Location{Line: 1}},
		&statements.Construct{Def: host, Kwargs: map[string]*runtime.ResultVariable{"name": name1, "ip": ipRV}, Target: h1, Loc: diagnostics.Location{Line: 1}},
	}

	program := oneModuleProgram(ns, stmts)
	result, diags := compiler.Compile(context.Background(), program, registry, nil)
	require.True(t, diags.Empty(), diags.Error())

	require.Len(t, result.Resources["Host"], 1)
	assert.True(t, result.Resources["Host"][0].Attributes["ip"].IsUnknown())
}

// TestCompile_UnderfilledRelationReportsAtFinalize is scenario S6: a
// to-many relation with a nonzero minimum and no producer must report
// MultiplicityUnderfill once the compile finalizes, not before.
func TestCompile_UnderfilledRelationReportsAtFinalize(t *testing.T) {
	root := namespace.Root()
	ns := root.Child("main")

	nic := types.NewEntityDefinition("Nic")
	server := types.NewEntityDefinition("Server")
	require.NoError(t, server.AddRelation(&types.RelationDef{Name: "nic", TargetName: "Nic", Multiplicity: types.Multiplicity{Lo: 1, Hi: -1}}))

	table := builtinTable(nic, server)
	normalizeAll(table, root)

	ctx := ast.NewExecutionContext(ns, namespace.NewNamespacedResolver(table, root).WithNamespace(ns), ast.NewSink(diagnostics.NewDiagnostics(), nil, nil), nil)
	s := ctx.Declare("s", nil)

	stmts := []ast.Statement{
		&statements.Construct{Def: server, Kwargs: map[string]*runtime.ResultVariable{}, Target: s, Loc: diagnostics.Location{Line: 1}},
	}

	program := oneModuleProgram(ns, stmts)
	_, diags := compiler.Compile(context.Background(), program, nil, nil)
	require.False(t, diags.Empty())
	found := false
	for _, d := range diags.All() {
		if d.Kind == diagnostics.KindMultiplicityUnderfill {
			found = true
		}
	}
	assert.True(t, found, "expected a MultiplicityUnderfill diagnostic")
}
