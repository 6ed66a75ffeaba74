package runtime

import (
	"context"

	"github.com/flowscript/flowscript/engine/expr"
)

// RegisterBuiltins binds the transform runtimes that belong to the core
// itself rather than to an external collaborator: template/map/filter are
// generic data-shaping operations over the expression evaluator (§4.2),
// unlike http/file/ai/email/database which the spec excludes as plug-in
// runtimes (§1). Callers still register those separately; RegisterBuiltins
// only covers the ones the core can run standalone.
func RegisterBuiltins(reg *Registry) {
	reg.Register("transform:template", RuntimeFunc(templateRuntime))
	reg.Register("transform:map", RuntimeFunc(mapRuntime))
	reg.Register("transform:filter", RuntimeFunc(filterRuntime))
}

// templateRuntime returns the already-template-resolved config.template
// string verbatim — resolveConfig (engine/executor) evaluates it as a
// whole-document template before the runtime ever sees it.
func templateRuntime(_ context.Context, in Input) (any, error) {
	s, _ := in.Config["template"].(string)
	return s, nil
}

// mapRuntime applies config.expression to every element of the upstream
// input, binding $item/$index/$first/$last/$items per iteration. The
// expression arrives unresolved (engine/executor defers map/filter's
// per-item keys) so it can be re-evaluated once per element.
func mapRuntime(_ context.Context, in Input) (any, error) {
	items := toSlice(in.Value)
	exprStr, _ := in.Config["expression"].(string)
	if exprStr == "" {
		return items, nil
	}
	out := make([]any, len(items))
	for i, item := range items {
		v, err := expr.EvalTemplate(exprStr, itemContext(in, items, item, i))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// filterRuntime keeps every element of the upstream input for which
// config.condition evaluates truthy.
func filterRuntime(_ context.Context, in Input) (any, error) {
	items := toSlice(in.Value)
	condStr, _ := in.Config["condition"].(string)
	if condStr == "" {
		return items, nil
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		v, err := expr.EvalTemplate(condStr, itemContext(in, items, item, i))
		if err != nil {
			return nil, err
		}
		if expr.Truthy(v) {
			out = append(out, item)
		}
	}
	return out, nil
}

// toSlice coerces an arbitrary upstream value to a slice, wrapping a
// singleton and treating nil as empty, matching foreach's collection
// coercion (§4.7).
func toSlice(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

func itemContext(in Input, items []any, item any, index int) expr.Context {
	merged := map[string]any{}
	if in.State != nil {
		for k, v := range in.State.GetNodeOutputs() {
			merged[k] = v
		}
	}
	items64 := make([]any, len(items))
	copy(items64, items)
	return expr.Context{
		Layers: []map[string]any{merged},
		Locals: map[string]any{
			"$item":  item,
			"$index": index,
			"$first": index == 0,
			"$last":  index == len(items)-1,
			"$items": items64,
		},
	}
}
