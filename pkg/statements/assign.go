package statements

import (
	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/runtime"
)

// Assign writes the RHS value into the target RV once the RHS is known
// (§4.3 table). Source is whatever RV the RHS expression already wrote
// its result into (a Literal's Target, a PluginCall's Target, etc.) —
// Assign itself does no evaluation, it only forwards.
type Assign struct {
	Source *runtime.ResultVariable
	Target *runtime.ResultVariable
	Loc    diagnostics.Location
}

func (a *Assign) Location() diagnostics.Location { return a.Loc }

func (a *Assign) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	v, err := a.Source.Get()
	if err != nil {
		return runtime.Blocked(a.Source)
	}
	woken, err := a.Target.Set(v, a.Loc)
	if err != nil {
		ctx.Sink.Diagnostics.Add(classify(err, a.Loc))
	}
	ctx.Sink.Wake(woken)
	return runtime.Ready
}
