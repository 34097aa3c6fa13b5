// Package exporter implements the compile sink of §4.7: it walks every
// instance.Store left behind by a compile and flattens each
// instance.EntityInstance into an exporter.Resource — a plain,
// JSON-serializable record with no knowledge of agents, wire formats, or
// deployment (that belongs to a consumer outside this package, per §1/§6).
// Record shape follows pkg/stores' persisted-row structs (ResourceState,
// Fact): flat fields tagged for json, scalars and blobs rather than
// nested behavior.
package exporter

import (
	"errors"
	"sort"

	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/instance"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/values"
)

// Resource is one exported entity instance: its fully qualified entity
// name, its instance ID (stable for the life of the compile), its
// attribute values keyed by name, and its relation targets keyed by name.
// An attribute frozen as Unknown is exported as the Unknown sentinel
// itself, never silently dropped or coerced to null (§4.7).
type Resource struct {
	Entity     string                 `json:"entity"`
	ID         string                 `json:"id"`
	Attributes map[string]values.Value `json:"attributes"`
	Relations  map[string][]values.Value `json:"relations"`
}

// Export walks every store in world and returns one Resource per
// instance, grouped by entity name in instance-creation order within each
// group and by sorted entity name across groups, so output is
// deterministic across runs of the same compile (§8 invariant 1). It
// reports, rather than silently swallows, any scalar attribute or to-one
// relation still Open at export time — that should never happen after a
// clean compile (finalize freezes everything), so its presence here means
// the caller exported before finalize ran. To-many relations are exported
// as their current items without checking whether they are frozen.
func Export(world *instance.World) (map[string][]*Resource, *diagnostics.Diagnostics) {
	diags := diagnostics.NewDiagnostics()
	out := map[string][]*Resource{}

	stores := world.Stores()
	names := make([]string, 0, len(stores))
	for name := range stores {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		store := stores[name]
		for _, inst := range store.AllInstances() {
			res, resDiags := exportInstance(inst)
			for _, d := range resDiags.All() {
				diags.Add(d)
			}
			out[name] = append(out[name], res)
		}
	}
	return out, diags
}

func exportInstance(inst *instance.EntityInstance) (*Resource, *diagnostics.Diagnostics) {
	diags := diagnostics.NewDiagnostics()
	def := inst.Definition()

	res := &Resource{
		Entity:     def.Name(),
		ID:         inst.InstanceID(),
		Attributes: map[string]values.Value{},
		Relations:  map[string][]values.Value{},
	}

	attrNames := make([]string, 0, len(def.Attributes())+len(def.Relations()))
	for n := range def.Attributes() {
		attrNames = append(attrNames, n)
	}
	sort.Strings(attrNames)
	for _, n := range attrNames {
		rv, ok := inst.Attribute(n)
		if !ok {
			continue
		}
		v, err := rv.Get()
		if errors.Is(err, runtime.ErrUnderfilledFreeze) {
			res.Attributes[n] = values.Null
			continue
		}
		if err != nil {
			diags.Add(diagnostics.New(diagnostics.KindNotFound, inst.Location(),
				"export: %s.%s on %s unresolved: %v", def.Name(), n, inst.InstanceID(), err))
			continue
		}
		res.Attributes[n] = v
	}

	relNames := make([]string, 0, len(def.Relations()))
	for n, r := range def.Relations() {
		if r.Multiplicity.Single() {
			continue
		}
		relNames = append(relNames, n)
	}
	sort.Strings(relNames)
	for _, n := range relNames {
		lv, ok := inst.Relation(n)
		if !ok {
			continue
		}
		res.Relations[n] = lv.Items()
	}

	for n, r := range def.Relations() {
		if !r.Multiplicity.Single() {
			continue
		}
		rv, ok := inst.Attribute(n)
		if !ok {
			continue
		}
		v, err := rv.Get()
		if errors.Is(err, runtime.ErrUnderfilledFreeze) {
			res.Attributes[n] = values.Null
			continue
		}
		if err != nil {
			diags.Add(diagnostics.New(diagnostics.KindNotFound, inst.Location(),
				"export: %s.%s on %s unresolved: %v", def.Name(), n, inst.InstanceID(), err))
			continue
		}
		res.Attributes[n] = v
	}

	return res, diags
}
