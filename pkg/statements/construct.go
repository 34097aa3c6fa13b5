package statements

import (
	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/instance"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/types"
	"github.com/frostlang/frost/pkg/values"
)

// Construct evaluates kwargs and calls the Store's construct operation
// (§4.2, §4.3 table). It blocks until every kwarg RV is Bound, then
// allocates or merges exactly once: done/result memoize the outcome so a
// re-Execute (only possible if something external re-queues this
// statement by mistake) never calls Store.Construct twice — the
// re-entrancy requirement from §4.3 ("side-effecting operations must be
// keyed").
type Construct struct {
	Def    *types.EntityDefinition
	Kwargs map[string]*runtime.ResultVariable
	Target *runtime.ResultVariable
	Loc    diagnostics.Location

	done   bool
	result *instance.EntityInstance
}

func (c *Construct) Location() diagnostics.Location { return c.Loc }

func (c *Construct) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	if c.done {
		return c.deliver(ctx)
	}

	kwargValues := make(map[string]values.Value, len(c.Kwargs))
	for name, rv := range c.Kwargs {
		v, err := rv.Get()
		if err != nil {
			return runtime.Blocked(rv)
		}
		kwargValues[name] = v
	}

	store := ctx.Sink.World.StoreFor(c.Def)
	inst, released, diags := store.Construct(kwargValues, c.Loc)
	for _, d := range diags.All() {
		ctx.Sink.Diagnostics.Add(d)
	}
	ctx.Sink.Wake(released)
	c.done = true
	c.result = inst
	return c.deliver(ctx)
}

func (c *Construct) deliver(ctx *ast.ExecutionContext) runtime.Poll {
	woken, err := c.Target.Set(c.result.Value(), c.Loc)
	if err != nil {
		ctx.Sink.Diagnostics.Add(classify(err, c.Loc))
	}
	ctx.Sink.Wake(woken)
	return runtime.Ready
}
