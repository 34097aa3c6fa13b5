package exporter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/exporter"
	"github.com/frostlang/frost/pkg/instance"
	"github.com/frostlang/frost/pkg/namespace"
	"github.com/frostlang/frost/pkg/types"
	"github.com/frostlang/frost/pkg/values"
)

func hostDef() *types.EntityDefinition {
	def := types.NewEntityDefinition("main::Host")
	_ = def.AddAttribute(&types.AttributeDef{Name: "name", TypeName: "string", Multiplicity: types.Multiplicity{Lo: 1, Hi: 1}})
	_ = def.AddAttribute(&types.AttributeDef{Name: "comment", TypeName: "string", Nullable: true, Multiplicity: types.Multiplicity{Lo: 0, Hi: 1}})

	table := types.Builtins()
	table["main::Host"] = def
	if err := def.Normalize(namespace.NewBasicResolver(table)); err != nil {
		panic(err)
	}
	return def
}

func TestExport_ProducesOneResourcePerInstanceSortedByEntity(t *testing.T) {
	world := instance.NewWorld()
	def := hostDef()
	store := world.StoreFor(def)

	kwargs := map[string]values.Value{"name": values.String("web1")}
	inst1, released1, diags1 := store.Construct(kwargs, diagnostics.Location{Line: 1})
	require.True(t, diags1.Empty())
	require.Empty(t, released1)

	kwargs2 := map[string]values.Value{"name": values.String("web2")}
	inst2, _, diags2 := store.Construct(kwargs2, diagnostics.Location{Line: 2})
	require.True(t, diags2.Empty())

	// Finalize freezes every attribute RV, leaving the optional "comment"
	// attribute Frozen-empty -> exported as Null rather than an error.
	_, finalizeDiags := store.Finalize()
	require.True(t, finalizeDiags.Empty(), finalizeDiags.Error())

	resources, diags := exporter.Export(world)
	require.True(t, diags.Empty(), diags.Error())
	require.Contains(t, resources, "main::Host")
	require.Len(t, resources["main::Host"], 2)

	byID := map[string]*exporter.Resource{}
	for _, r := range resources["main::Host"] {
		byID[r.ID] = r
	}
	require.Contains(t, byID, inst1.InstanceID())
	require.Contains(t, byID, inst2.InstanceID())

	r1 := byID[inst1.InstanceID()]
	assert.Equal(t, "main::Host", r1.Entity)
	name, ok := r1.Attributes["name"].String_()
	require.True(t, ok)
	assert.Equal(t, "web1", name)
}

func TestExport_EmptyWorldProducesNoResources(t *testing.T) {
	world := instance.NewWorld()
	resources, diags := exporter.Export(world)
	require.True(t, diags.Empty())
	assert.Empty(t, resources)
}
