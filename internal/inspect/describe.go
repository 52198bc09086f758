// Package inspect exposes an open bridge for inspection: plain value dumps,
// JSONPath selection and an HTTP server that follows the file on disk.
package inspect

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"

	"github.com/ohler55/ojg/jp"

	"github.com/agentic-research/scenebridge/internal/sdf"
)

// Value converts a field or sample value into plain data: strings, numbers,
// bools, []any and map[string]any. The result marshals to JSON and can be
// queried with JSONPath.
func Value(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case bool, string, float64:
		return x
	case int32:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	case sdf.Token:
		return string(x)
	case sdf.Path:
		return string(x)
	case sdf.AssetPath:
		return string(x)
	case sdf.ValueTypeName:
		return string(x)
	case sdf.SpecType, sdf.Specifier, sdf.Variability:
		return x.(fmt.Stringer).String()
	case sdf.Reference:
		return map[string]any{"assetPath": x.AssetPath, "primPath": string(x.PrimPath)}
	case sdf.Dictionary:
		out := make(map[string]any, len(x))
		for k, v := range x {
			out[k] = Value(v)
		}
		return out
	case sdf.ListOp[sdf.Reference]:
		return listOp(x)
	case sdf.ListOp[sdf.Token]:
		return listOp(x)
	case sdf.ListOp[sdf.Path]:
		return listOp(x)
	case *sdf.TimeSampleMap:
		return timeSamples(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Value(rv.Index(i).Interface())
		}
		return out
	}
	return fmt.Sprint(v)
}

func listOp[T comparable](op sdf.ListOp[T]) map[string]any {
	items := func(in []T) []any {
		out := make([]any, len(in))
		for i, item := range in {
			out[i] = Value(item)
		}
		return out
	}
	out := map[string]any{}
	if op.Explicit {
		out["explicit"] = items(op.ExplicitItems)
		return out
	}
	for key, list := range map[string][]T{
		"prepended": op.PrependedItems,
		"appended":  op.AppendedItems,
		"deleted":   op.DeletedItems,
	} {
		if len(list) > 0 {
			out[key] = items(list)
		}
	}
	return out
}

// timeSamples keys samples by their formatted time. Placeholders, whose
// values only exist on query, show as null.
func timeSamples(m *sdf.TimeSampleMap) map[string]any {
	out := make(map[string]any, m.Len())
	for _, ts := range m.Entries() {
		key := strconv.FormatFloat(ts.Time, 'g', -1, 64)
		if r, ok := ts.Sample.(sdf.Resolved); ok {
			out[key] = Value(r.Value)
			continue
		}
		out[key] = nil
	}
	return out
}

// Spec describes the spec at path with all of its fields in order.
func Spec(d sdf.AbstractData, path sdf.Path) (map[string]any, bool) {
	if !d.HasSpec(path) {
		return nil, false
	}
	fields := map[string]any{}
	names := d.List(path)
	order := make([]any, len(names))
	for i, name := range names {
		fields[name] = Value(d.Get(path, name))
		order[i] = name
	}
	return map[string]any{
		"path":     string(path),
		"specType": d.GetSpecType(path).String(),
		"order":    order,
		"fields":   fields,
	}, true
}

// Paths returns the spec paths under prefix in order. An empty prefix
// matches everything.
func Paths(d sdf.AbstractData, prefix sdf.Path) []sdf.Path {
	var out []sdf.Path
	d.VisitSpecs(func(p sdf.Path) bool {
		if prefix == "" || p.HasPrefix(prefix) {
			out = append(out, p)
		}
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Dump describes every spec under prefix.
func Dump(d sdf.AbstractData, prefix sdf.Path) []any {
	paths := Paths(d, prefix)
	out := make([]any, 0, len(paths))
	for _, p := range paths {
		if s, ok := Spec(d, p); ok {
			out = append(out, s)
		}
	}
	return out
}

// Select evaluates a JSONPath expression against a dump.
func Select(doc any, expr string) ([]any, error) {
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", expr, err)
	}
	return x.Get(doc), nil
}
