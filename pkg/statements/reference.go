package statements

import (
	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/instance"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/values"
)

// Reference reads a named RV and forwards its value; blocks on first
// Unset (§4.3 table). Name resolution against ctx happens every Execute
// rather than once at construction, since the same Reference node may be
// re-entered from a fresh scope (for-loop body copies).
type Reference struct {
	Name   string
	Target *runtime.ResultVariable
	Loc    diagnostics.Location
}

func (r *Reference) Location() diagnostics.Location { return r.Loc }

func (r *Reference) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	source, ok := ctx.Lookup(r.Name)
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindNameNotFound, r.Loc, "name %q is not defined", r.Name))
		return runtime.Ready
	}
	v, err := source.Get()
	if err != nil {
		return runtime.Blocked(source)
	}
	woken, err := r.Target.Set(v, r.Loc)
	if err != nil {
		ctx.Sink.Diagnostics.Add(classify(err, r.Loc))
	}
	ctx.Sink.Wake(woken)
	return runtime.Ready
}

// AttributeRef resolves e, then obtains the attribute RV (or, for a
// list-valued attribute/relation, the frozen list) on that instance;
// blocks on either (§4.3 table).
type AttributeRef struct {
	Base   *runtime.ResultVariable
	Attr   string
	Target *runtime.ResultVariable
	Loc    diagnostics.Location
}

func (a *AttributeRef) Location() diagnostics.Location { return a.Loc }

func (a *AttributeRef) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	baseVal, err := a.Base.Get()
	if err != nil {
		return runtime.Blocked(a.Base)
	}
	ref, ok := baseVal.Entity_()
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindTyping, a.Loc, "cannot access attribute %q: base value is not an entity instance", a.Attr))
		return runtime.Ready
	}
	inst, ok := ref.(*instance.EntityInstance)
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindTyping, a.Loc, "internal: unexpected instance reference type %T", ref))
		return runtime.Ready
	}

	if rv, ok := inst.Attribute(a.Attr); ok {
		v, err := rv.Get()
		if err != nil {
			return runtime.Blocked(rv)
		}
		woken, err := a.Target.Set(v, a.Loc)
		if err != nil {
			ctx.Sink.Diagnostics.Add(classify(err, a.Loc))
		}
		ctx.Sink.Wake(woken)
		return runtime.Ready
	}

	if lv, ok := inst.Relation(a.Attr); ok {
		if !lv.Frozen() {
			return runtime.Blocked(lv)
		}
		woken, err := a.Target.Set(values.List(lv.Items()), a.Loc)
		if err != nil {
			ctx.Sink.Diagnostics.Add(classify(err, a.Loc))
		}
		ctx.Sink.Wake(woken)
		return runtime.Ready
	}

	ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindNameNotFound, a.Loc,
		"no attribute or relation %q on %s", a.Attr, inst.EntityName()))
	return runtime.Ready
}
