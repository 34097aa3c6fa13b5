package commands

import (
	"sort"

	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/loader"
	"github.com/frostlang/frost/pkg/namespace"
	"github.com/frostlang/frost/pkg/plugin"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/statements"
	"github.com/frostlang/frost/pkg/types"
	"github.com/frostlang/frost/pkg/values"
)

// Fixture is a hand-built namespace + statement tree standing in for what
// a lexer/parser would otherwise hand the loader — frostc has neither, so
// "compile" always runs one of these by name.
type Fixture struct {
	Name        string
	Description string
	Build       func() (*loader.Program, *plugin.Registry)
}

var fixtures = map[string]Fixture{
	"hosts":    hostsFixture(),
	"relation": relationFixture(),
	"fleet":    fleetFixture(),
}

func sortedFixtureNames() []string {
	names := make([]string, 0, len(fixtures))
	for name := range fixtures {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func namespacedTable(defs ...*types.EntityDefinition) (map[string]types.Type, *namespace.Namespace, *namespace.Namespace) {
	root := namespace.Root()
	ns := root.Child("main")
	table := types.Builtins()
	for _, d := range defs {
		table[d.Name()] = d
	}
	resolver := namespace.NewNamespacedResolver(table, root)
	for _, t := range table {
		if err := t.Normalize(resolver); err != nil {
			panic(err)
		}
	}
	return table, root, ns
}

func oneModuleProgram(ns *namespace.Namespace, stmts []ast.Statement) *loader.Program {
	return &loader.Program{
		Modules: map[string]loader.Module{
			"main": {Namespace: ns, Statements: stmts},
		},
	}
}

// hostsFixture constructs two Hosts keyed on the same "name" index, so the
// compile settles on a single deduplicated instance.
func hostsFixture() Fixture {
	return Fixture{
		Name:        "hosts",
		Description: "two Host constructs sharing an index key collapse into one instance",
		Build: func() (*loader.Program, *plugin.Registry) {
			host := types.NewEntityDefinition("Host")
			mustAdd(host.AddAttribute(&types.AttributeDef{Name: "name", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}}))
			host.Indices = []types.IndexDef{{Attributes: []string{"name"}}}
			_, _, ns := namespacedTable(host)

			declare := newDeclarer(ns)
			name1 := declare("name1", types.TString)
			name2 := declare("name2", types.TString)
			h1 := declare("h1", nil)
			h2 := declare("h2", nil)

			stmts := []ast.Statement{
				&statements.Literal{Value: values.String("web1"), Target: name1, Loc: diagnostics.Location{Line: 1}},
				&statements.Literal{Value: values.String("web1"), Target: name2, Loc: diagnostics.Location{Line: 2}},
				&statements.Construct{Def: host, Kwargs: map[string]*runtime.ResultVariable{"name": name1}, Target: h1, Loc: diagnostics.Location{Line: 1}},
				&statements.Construct{Def: host, Kwargs: map[string]*runtime.ResultVariable{"name": name2}, Target: h2, Loc: diagnostics.Location{Line: 2}},
			}
			return oneModuleProgram(ns, stmts), plugin.NewRegistry()
		},
	}
}

// relationFixture builds one Host and one File joined by an explicit
// bidirectional assignment: File.host (scalar) and Host.files (list) are
// both set by hand, since the statement runtime never mirrors a relation
// automatically.
func relationFixture() Fixture {
	return Fixture{
		Name:        "relation",
		Description: "a File assigned to a Host populates both Host.files and File.host",
		Build: func() (*loader.Program, *plugin.Registry) {
			host := types.NewEntityDefinition("Host")
			mustAdd(host.AddAttribute(&types.AttributeDef{Name: "name", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}}))
			file := types.NewEntityDefinition("File")
			mustAdd(file.AddRelation(&types.RelationDef{Name: "host", TargetName: "Host", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}, InverseName: "files"}))
			mustAdd(host.AddRelation(&types.RelationDef{Name: "files", TargetName: "File", Multiplicity: types.Multiplicity{Lo: 0, Hi: -1}, InverseName: "host"}))
			_, _, ns := namespacedTable(host, file)

			declare := newDeclarer(ns)
			name1 := declare("name1", types.TString)
			h1 := declare("h1", nil)
			f1 := declare("f1", nil)

			stmts := []ast.Statement{
				&statements.Literal{Value: values.String("web1"), Target: name1, Loc: diagnostics.Location{Line: 1}},
				&statements.Construct{Def: host, Kwargs: map[string]*runtime.ResultVariable{"name": name1}, Target: h1, Loc: diagnostics.Location{Line: 1}},
				&statements.Construct{Def: file, Kwargs: map[string]*runtime.ResultVariable{}, Target: f1, Loc: diagnostics.Location{Line: 2}},
				&statements.RelationAssignSingle{Base: f1, Relation: "host", Value: h1, Loc: diagnostics.Location{Line: 2}},
				&statements.RelationAssign{Base: h1, Relation: "files", Value: f1, Loc: diagnostics.Location{Line: 2}},
			}
			return oneModuleProgram(ns, stmts), plugin.NewRegistry()
		},
	}
}

// fleetFixture loops over a literal list of names, constructing one Host
// per element in list order.
func fleetFixture() Fixture {
	return Fixture{
		Name:        "fleet",
		Description: "a for-loop over a literal name list constructs one Host per element, in order",
		Build: func() (*loader.Program, *plugin.Registry) {
			host := types.NewEntityDefinition("Host")
			mustAdd(host.AddAttribute(&types.AttributeDef{Name: "name", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}}))
			_, _, ns := namespacedTable(host)

			declare := newDeclarer(ns)
			a := declare("a", types.TString)
			b := declare("b", types.TString)
			c := declare("c", types.TString)
			listRV := declare("names", nil)

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
				&statements.Literal{Value: values.String("web1"), Target: a, Loc: diagnostics.Location{Line: 1}},
				&statements.Literal{Value: values.String("web2"), Target: b, Loc: diagnostics.Location{Line: 1}},
				&statements.Literal{Value: values.String("web3"), Target: c, Loc: diagnostics.Location{Line: 1}},
				&statements.ListLiteral{Elements: []*runtime.ResultVariable{a, b, c}, Target: listRV, Loc: diagnostics.Location{Line: 1}},
				loop,
			}
			return oneModuleProgram(ns, stmts), plugin.NewRegistry()
		},
	}
}

// newDeclarer returns a closure for declaring root-scope RVs without
// standing up a full ExecutionContext — Execute only needs the
// referenced RVs themselves, not the scope that created them.
func newDeclarer(ns *namespace.Namespace) func(name string, domain types.Type) *runtime.ResultVariable {
	locals := map[string]*runtime.ResultVariable{}
	return func(name string, domain types.Type) *runtime.ResultVariable {
		if rv, ok := locals[name]; ok {
			return rv
		}
		rv := runtime.NewResultVariable(domain)
		locals[name] = rv
		return rv
	}
}

func mustAdd(err error) {
	if err != nil {
		panic(err)
	}
}
