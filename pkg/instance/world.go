package instance

import "github.com/frostlang/frost/pkg/types"

// World owns one Store per entity definition seen during a compile — "no
// process-wide registry" (§9): each definition gets its own instance
// vector and index tables, and World is only the thin map that finds the
// right Store by definition.
type World struct {
	stores map[string]*Store
}

func NewWorld() *World {
	return &World{stores: map[string]*Store{}}
}

// StoreFor returns (creating if necessary) the Store for def.
func (w *World) StoreFor(def *types.EntityDefinition) *Store {
	if s, ok := w.stores[def.Name()]; ok {
		return s
	}
	s := NewStore(def)
	w.stores[def.Name()] = s
	return s
}

// Stores returns every store created so far, for the scheduler's
// Reconcile sweep, the compiler's Finalize sweep and the exporter's
// instance-set walk.
func (w *World) Stores() map[string]*Store {
	return w.stores
}
