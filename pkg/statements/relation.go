package statements

import (
	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/instance"
	"github.com/frostlang/frost/pkg/runtime"
)

// RelationAssign implements `e.rel += x`: registers as a producer of the
// list RV on its first Execute, then inserts once x is known (§4.3 table).
// registered memoizes the producer registration so re-Execute after a
// block does not double-count it, and inserted memoizes the insert itself
// so a second wake-up after the insert already happened is a no-op.
type RelationAssign struct {
	Base     *runtime.ResultVariable
	Relation string
	Value    *runtime.ResultVariable
	Loc      diagnostics.Location

	registered bool
	inserted   bool
}

func (r *RelationAssign) Location() diagnostics.Location { return r.Loc }

func (r *RelationAssign) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	baseVal, err := r.Base.Get()
	if err != nil {
		return runtime.Blocked(r.Base)
	}
	ref, ok := baseVal.Entity_()
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindTyping, r.Loc, "cannot assign relation %q: base is not an entity instance", r.Relation))
		return runtime.Ready
	}
	inst, ok := ref.(*instance.EntityInstance)
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindTyping, r.Loc, "internal: unexpected instance reference type %T", ref))
		return runtime.Ready
	}
	lv, ok := inst.Relation(r.Relation)
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindNameNotFound, r.Loc, "no list relation %q on %s", r.Relation, inst.EntityName()))
		return runtime.Ready
	}

	if !r.registered {
		lv.RegisterProducer()
		r.registered = true
	}
	if r.inserted {
		return runtime.Ready
	}

	v, err := r.Value.Get()
	if err != nil {
		return runtime.Blocked(r.Value)
	}
	woken, err := lv.Insert(v, r)
	if err != nil {
		ctx.Sink.Diagnostics.Add(classify(err, r.Loc))
	}
	r.inserted = true
	lv.ProducerDone()
	ctx.Sink.Wake(woken)
	return runtime.Ready
}

// RelationAssignSingle implements `e.rel = x` for [1]/[0:1] relations,
// the scalar-collapse case of §4.2's "multiplicity upper bound is 1"
// rule, distinct from RelationAssign's accumulating `+=` (§4.3
// expansion).
type RelationAssignSingle struct {
	Base     *runtime.ResultVariable
	Relation string
	Value    *runtime.ResultVariable
	Loc      diagnostics.Location
}

func (r *RelationAssignSingle) Location() diagnostics.Location { return r.Loc }

func (r *RelationAssignSingle) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	baseVal, err := r.Base.Get()
	if err != nil {
		return runtime.Blocked(r.Base)
	}
	ref, ok := baseVal.Entity_()
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindTyping, r.Loc, "cannot assign relation %q: base is not an entity instance", r.Relation))
		return runtime.Ready
	}
	inst, ok := ref.(*instance.EntityInstance)
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindTyping, r.Loc, "internal: unexpected instance reference type %T", ref))
		return runtime.Ready
	}
	rv, ok := inst.Attribute(r.Relation)
	if !ok {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindNameNotFound, r.Loc, "no scalar relation %q on %s", r.Relation, inst.EntityName()))
		return runtime.Ready
	}
	v, err := r.Value.Get()
	if err != nil {
		return runtime.Blocked(r.Value)
	}
	woken, err := rv.Set(v, r.Loc)
	if err != nil {
		ctx.Sink.Diagnostics.Add(classify(err, r.Loc))
	}
	ctx.Sink.Wake(woken)
	return runtime.Ready
}
