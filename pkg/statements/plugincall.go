package statements

import (
	"github.com/frostlang/frost/pkg/ast"
	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/runtime"
	"github.com/frostlang/frost/pkg/values"
)

// PluginCall evaluates every positional and keyword argument, then
// dispatches through the compile's plugin.Registry (§4.3 table, §6).
// Strict in all arguments: a plugin call blocks until none of its
// arguments are Unset, matching §6's "plugins never observe Unset, only
// Unknown or a concrete value".
type PluginCall struct {
	Name   string
	Args   []*runtime.ResultVariable
	Kwargs map[string]*runtime.ResultVariable
	Target *runtime.ResultVariable
	Loc    diagnostics.Location

	done bool
}

func (p *PluginCall) Location() diagnostics.Location { return p.Loc }

func (p *PluginCall) Execute(ctx *ast.ExecutionContext) runtime.Poll {
	if p.done {
		return runtime.Ready
	}

	args := make([]values.Value, len(p.Args))
	for i, rv := range p.Args {
		v, err := rv.Get()
		if err != nil {
			return runtime.Blocked(rv)
		}
		args[i] = v
	}
	kwargs := make(map[string]values.Value, len(p.Kwargs))
	for name, rv := range p.Kwargs {
		v, err := rv.Get()
		if err != nil {
			return runtime.Blocked(rv)
		}
		kwargs[name] = v
	}

	result, err := ctx.Sink.Plugins.Invoke(p.Name, args, kwargs, p.Loc)
	if err != nil {
		if diag, ok := err.(*diagnostics.Diagnostic); ok {
			ctx.Sink.Diagnostics.Add(diag)
		} else {
			ctx.Sink.Diagnostics.Add(diagnostics.New(diagnostics.KindPlugin, p.Loc, "%v", err))
		}
		p.done = true
		return runtime.Ready
	}

	p.done = true
	woken, err := p.Target.Set(result, p.Loc)
	if err != nil {
		ctx.Sink.Diagnostics.Add(classify(err, p.Loc))
	}
	ctx.Sink.Wake(woken)
	return runtime.Ready
}
