package plugin

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/frostlang/frost/pkg/values"
)

// toStarlark converts a values.Value to its Starlark equivalent so a
// scripted plugin can operate on it with ordinary Starlark syntax.
// Unknown has no Starlark representation (a scripted plugin cannot be
// handed a partially-known argument — §6 requires strictness), so it is
// rejected here; PluginCall must not invoke a scripted plugin until every
// argument is fully bound and known.
func toStarlark(v values.Value) (starlark.Value, error) {
	switch v.Kind() {
	case values.KindNull:
		return starlark.None, nil
	case values.KindUnknown:
		return nil, fmt.Errorf("cannot pass an unknown value to a scripted plugin")
	case values.KindBool:
		b, _ := v.Bool()
		return starlark.Bool(b), nil
	case values.KindInt:
		i, _ := v.Int()
		return starlark.MakeInt64(i), nil
	case values.KindFloat:
		f, _ := v.Float()
		return starlark.Float(f), nil
	case values.KindString:
		s, _ := v.String_()
		return starlark.String(s), nil
	case values.KindList:
		items, _ := v.List_()
		list := make([]starlark.Value, len(items))
		for i, item := range items {
			sv, err := toStarlark(item)
			if err != nil {
				return nil, err
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	default:
		return nil, fmt.Errorf("value of kind %s has no starlark representation", v.Kind())
	}
}

// fromStarlark converts a Starlark result back to a values.Value.
func fromStarlark(v starlark.Value) (values.Value, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return values.Null, nil
	case starlark.Bool:
		return values.Bool(bool(val)), nil
	case starlark.Int:
		i, ok := val.Int64()
		if !ok {
			return values.Value{}, fmt.Errorf("integer result too large")
		}
		return values.Int(i), nil
	case starlark.Float:
		return values.Float(float64(val)), nil
	case starlark.String:
		return values.String(string(val)), nil
	case *starlark.List:
		items := make([]values.Value, val.Len())
		for i := 0; i < val.Len(); i++ {
			item, err := fromStarlark(val.Index(i))
			if err != nil {
				return values.Value{}, err
			}
			items[i] = item
		}
		return values.List(items), nil
	default:
		return values.Value{}, fmt.Errorf("unsupported starlark result type: %s", v.Type())
	}
}
