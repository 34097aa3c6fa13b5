// Package plugin implements the external callable contract of §6:
// "invoke(name, positional_args, kwargs) -> value". A Registry maps a
// qualified plugin name to either a native Go PluginFunc (the built-ins,
// std::none among them, mirroring impera.plugins.base's hand-written
// plugins) or a *starlark.Function loaded from a scripted plugin module
// (grounded on the teacher's starlark_eval.go conversion helpers, adapted
// here to convert values.Value instead of interface{}).
package plugin

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/frostlang/frost/pkg/diagnostics"
	"github.com/frostlang/frost/pkg/values"
)

// PluginFunc is a native, synchronous, side-effect-free callable (§6).
type PluginFunc func(args []values.Value, kwargs map[string]values.Value) (values.Value, error)

// Registry resolves a qualified plugin name to a callable. Built-ins are
// registered as native PluginFunc; scripted plugins carry a compiled
// *starlark.Function plus the thread they share (plugins are synchronous,
// so one Thread per Registry is enough — no concurrent calls to guard
// against, per §5's single-logical-executor model).
type Registry struct {
	native   map[string]PluginFunc
	scripted map[string]*starlark.Function
	thread   *starlark.Thread
}

func NewRegistry() *Registry {
	r := &Registry{
		native:   map[string]PluginFunc{},
		scripted: map[string]*starlark.Function{},
		thread: &starlark.Thread{
			Name:  "frost-plugin",
			Print: func(*starlark.Thread, string) {},
		},
	}
	r.registerBuiltins()
	return r
}

// registerBuiltins installs the native plugins every compile needs
// regardless of a user-supplied script, matching how impera.plugins.base
// ships both native and scripted plugins side by side.
func (r *Registry) registerBuiltins() {
	r.native["std::none"] = func(args []values.Value, kwargs map[string]values.Value) (values.Value, error) {
		return values.Null, nil
	}
}

// RegisterNative installs a native plugin under name, overriding any
// built-in of the same name.
func (r *Registry) RegisterNative(name string, fn PluginFunc) {
	r.native[name] = fn
}

// LoadScript compiles source (a Starlark module) and registers every
// top-level function it defines, qualified as module+"::"+funcName.
func (r *Registry) LoadScript(module, source string) error {
	globals, err := starlark.ExecFile(r.thread, module+".star", source, nil)
	if err != nil {
		return fmt.Errorf("loading plugin module %s: %w", module, err)
	}
	for name, v := range globals {
		if len(name) > 0 && name[0] == '_' {
			continue
		}
		fn, ok := v.(*starlark.Function)
		if !ok {
			continue
		}
		r.scripted[module+"::"+name] = fn
	}
	return nil
}

// Invoke dispatches name with positional args and keyword kwargs, strict
// in every argument per §4.3's "Operators / plugin call" row. A Starlark
// runtime error is reported as a diagnostics.Plugin diagnostic wrapping
// loc, the triggering statement's location (§7: "Plugin exceptions are
// wrapped with the triggering source location").
func (r *Registry) Invoke(name string, args []values.Value, kwargs map[string]values.Value, loc diagnostics.Location) (values.Value, error) {
	if fn, ok := r.native[name]; ok {
		v, err := fn(args, kwargs)
		if err != nil {
			return values.Value{}, diagnostics.Wrap(loc, err)
		}
		return v, nil
	}

	fn, ok := r.scripted[name]
	if !ok {
		return values.Value{}, diagnostics.New(diagnostics.KindNameNotFound, loc, "no plugin registered for %q", name)
	}

	starArgs := make(starlark.Tuple, len(args))
	for i, a := range args {
		sv, err := toStarlark(a)
		if err != nil {
			return values.Value{}, diagnostics.Wrap(loc, err)
		}
		starArgs[i] = sv
	}
	starKwargs := make([]starlark.Tuple, 0, len(kwargs))
	for k, v := range kwargs {
		sv, err := toStarlark(v)
		if err != nil {
			return values.Value{}, diagnostics.Wrap(loc, err)
		}
		starKwargs = append(starKwargs, starlark.Tuple{starlark.String(k), sv})
	}

	result, err := starlark.Call(r.thread, fn, starArgs, starKwargs)
	if err != nil {
		return values.Value{}, diagnostics.Wrap(loc, err)
	}
	out, err := fromStarlark(result)
	if err != nil {
		return values.Value{}, diagnostics.Wrap(loc, err)
	}
	return out, nil
}

// Has reports whether name is registered, native or scripted.
func (r *Registry) Has(name string) bool {
	if _, ok := r.native[name]; ok {
		return true
	}
	_, ok := r.scripted[name]
	return ok
}
