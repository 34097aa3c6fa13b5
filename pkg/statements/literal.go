// Package statements implements one Go type per row of the statement
// contract table: each satisfies ast.Statement and re-executes safely
// after being woken from a Blocked Poll, per §4.3's re-entrancy
// requirement. Side-effecting kinds (Construct, RelationAssign) key their
// effect so a second Execute recognizes what it already did instead of
// repeating it.
package statements

import (
	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/values"
)

// Literal produces a constant value; it never blocks (§4.3 table).
type Literal struct {
	Value  values.Value
	Target *runtime.ResultVariable
	Loc    diagnostics.Location
}

func (l *Literal) Location() diagnostics.Location { return l.Loc }

func (l *Literal) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	woken, err := l.Target.Set(l.Value, l.Loc)
	if err != nil {
		ctx.Sink.Diagnostics.Add(classify(err, l.Loc))
	}
	ctx.Sink.Wake(woken)
	return runtime.Ready
}

// ListLiteral builds a literal list value from already-evaluated element
// RVs, e.g. S4's ["a","b","c"] (§4.3 expansion: needed to make for-loops
// over literal lists executable).
type ListLiteral struct {
	Elements []*runtime.ResultVariable
	Target   *runtime.ResultVariable
	Loc      diagnostics.Location
}

func (l *ListLiteral) Location() diagnostics.Location { return l.Loc }

func (l *ListLiteral) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	items := make([]values.Value, len(l.Elements))
	for i, rv := range l.Elements {
		v, err := rv.Get()
		if err != nil {
			return runtime.Blocked(rv)
		}
		items[i] = v
	}
	woken, err := l.Target.Set(values.List(items), l.Loc)
	if err != nil {
		ctx.Sink.Diagnostics.Add(classify(err, l.Loc))
	}
	ctx.Sink.Wake(woken)
	return runtime.Ready
}
