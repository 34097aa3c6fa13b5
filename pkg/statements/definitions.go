package statements

import (
	"github.com/frostlang/frost/pkg/namespace"
	"github.com/frostlang/frost/pkg/types"
)

// EntityDef is the Phase A definition statement for an entity block
// (original_source's DefineEntity): it contributes its already-built
// *types.EntityDefinition to the flat type table under its fully
// qualified name and makes sure the namespace node it lives in exists,
// but does no attribute/relation resolution itself — that is
// EntityDefinition.Normalize's job, run afterwards against the complete
// table (§4.5 Phase A).
type EntityDef struct {
	Def *types.EntityDefinition
}

func (d *EntityDef) DefineIn(ns *namespace.Namespace, table map[string]types.Type) error {
	table[d.Def.FQN] = d.Def
	ns.Resolve(parentPath(d.Def.FQN))
	return nil
}

// TypeDef is the Phase A definition statement for a `typedef ... as ...
// matching ...` declaration.
type TypeDef struct {
	Def *types.TypeDef
}

func (d *TypeDef) DefineIn(ns *namespace.Namespace, table map[string]types.Type) error {
	table[d.Def.FQN] = d.Def
	ns.Resolve(parentPath(d.Def.FQN))
	return nil
}

// parentPath strips the last "::"-separated component of a fully
// qualified name, returning the namespace path it lives in.
func parentPath(fqn string) string {
	for i := len(fqn) - 1; i > 0; i-- {
		if fqn[i] == ':' && fqn[i-1] == ':' {
			return fqn[:i-1]
		}
	}
	return ""
}
