package statements

import (
	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/types"
	"github.com/frostlang/frost/pkg/values"
)

// IndexLookupRef resolves `Type(attr=x, ...)` used as an expression rather
// than a constructor: once every key RV is Bound it asks the instance
// Store for the matching instance (§4.2, §4.3 table "index lookup"). A
// miss registers this statement directly with the Store rather than with
// any RV, since nothing in the slot model represents "this key has no
// owner yet" — the Store wakes it later via claimIndex/Reconcile. A key
// that is simply never claimed surfaces as NotFound only after
// instance.Store.Finalize, when pkg/compiler reads the store's
// UnresolvedLookups (§4.2: "fails with NotFound at freeze time, not
// before").
type IndexLookupRef struct {
	Def       *types.EntityDefinition
	AttrNames []string
	Keys      []*runtime.ResultVariable
	Target    *runtime.ResultVariable
	Loc       diagnostics.Location

	registered bool
	done       bool
}

func (x *IndexLookupRef) Location() diagnostics.Location { return x.Loc }

func (x *IndexLookupRef) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	if x.done {
		return runtime.Ready
	}

	keyVals := make([]values.Value, len(x.Keys))
	for i, rv := range x.Keys {
		v, err := rv.Get()
		if err != nil {
			return runtime.Blocked(rv)
		}
		keyVals[i] = v
	}

	store := ctx.Sink.World.StoreFor(x.Def)
	pos, err := store.IndexPosition(x.AttrNames)
	if err != nil {
		ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindNotFound, x.Loc, "%v", err))
		x.done = true
		return runtime.Ready
	}

	var waiter runtime.Waiter
	if !x.registered {
		waiter = x
		x.registered = true
	}
	inst, ok := store.Lookup(pos, keyVals, waiter)
	if !ok {
		return runtime.Pending()
	}

	x.done = true
	woken, err := x.Target.Set(inst.Value(), x.Loc)
	if err != nil {
		ctx.Sink.Diagnostics.Add(classify(err, x.Loc))
	}
	ctx.Sink.Wake(woken)
	return runtime.Ready
}
