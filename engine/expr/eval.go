package expr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/flowscript/flowscript/engine/ferrors"
)

// Context is the merged evaluation environment for one expression. Layers
// holds the bare-identifier lookup chain in low-to-high precedence order
// (callers build this from config/globalContext/phaseContext/nodeContext,
// with node outputs folded into globalContext); Locals holds $-prefixed
// iteration variables and $secrets/$workflowDir.
type Context struct {
	Layers []map[string]any
	Locals map[string]any
}

// redactPattern matches $secrets.NAME references; Snapshot replaces the
// secret name with "***" when rendering an expression for error diagnostics.
var redactPattern = regexp.MustCompile(`\$secrets\.[A-Za-z_][A-Za-z0-9_]*`)

// Snapshot renders a short, secret-redacted description of the
// expression source for inclusion in an ExpressionError.
func Snapshot(source string) string {
	return redactPattern.ReplaceAllString(source, "$secrets.***")
}

// Eval parses and evaluates a single expression (without the {{ }}
// delimiters) against ctx.
func Eval(source string, ctx Context) (any, error) {
	node, err := Parse(source)
	if err != nil {
		return nil, wrapErr(source, err)
	}
	v, err := evalNode(node, ctx)
	if err != nil {
		return nil, wrapErr(source, err)
	}
	return v, nil
}

func wrapErr(source string, cause error) *ferrors.Error {
	return ferrors.Wrap(ferrors.KindExpressionError, cause,
		fmt.Sprintf("failed to evaluate %q", Snapshot(source))).
		WithDetail("expression", Snapshot(source))
}

func evalNode(n Node, ctx Context) (any, error) {
	switch v := n.(type) {
	case LiteralNode:
		return v.Value, nil
	case IdentNode:
		return lookupIdent(ctx, v.Name), nil
	case LocalNode:
		return ctx.Locals[v.Name], nil
	case PropertyNode:
		target, err := evalNode(v.Target, ctx)
		if err != nil {
			return nil, err
		}
		return propertyAccess(target, v.Name), nil
	case IndexNode:
		target, err := evalNode(v.Target, ctx)
		if err != nil {
			return nil, err
		}
		idx, err := evalNode(v.Index, ctx)
		if err != nil {
			return nil, err
		}
		return indexAccess(target, idx), nil
	case UnaryNode:
		operand, err := evalNode(v.Operand, ctx)
		if err != nil {
			return nil, err
		}
		return evalUnary(v.Op, operand)
	case BinaryNode:
		return evalBinary(v, ctx)
	case TernaryNode:
		cond, err := evalNode(v.Cond, ctx)
		if err != nil {
			return nil, err
		}
		if Truthy(cond) {
			return evalNode(v.Then, ctx)
		}
		return evalNode(v.Else, ctx)
	case CoalesceNode:
		left, err := evalNode(v.Left, ctx)
		if err == nil && left != nil {
			return left, nil
		}
		return evalNode(v.Right, ctx)
	case CallNode:
		fn, ok := Builtins[v.Name]
		if !ok {
			return nil, fmt.Errorf("unknown function %q", v.Name)
		}
		args := make([]any, len(v.Args))
		for i, a := range v.Args {
			val, err := evalNode(a, ctx)
			if err != nil {
				return nil, err
			}
			args[i] = val
		}
		return fn(args)
	default:
		return nil, fmt.Errorf("unhandled expression node %T", n)
	}
}

func lookupIdent(ctx Context, name string) any {
	for i := len(ctx.Layers) - 1; i >= 0; i-- {
		if v, ok := ctx.Layers[i][name]; ok {
			return v
		}
	}
	return nil
}

func propertyAccess(target any, name string) any {
	switch t := target.(type) {
	case map[string]any:
		return t[name]
	default:
		return nil
	}
}

func indexAccess(target, idx any) any {
	switch t := target.(type) {
	case []any:
		i := int(toNum(idx))
		if i < 0 {
			i += len(t)
		}
		if i < 0 || i >= len(t) {
			return nil
		}
		return t[i]
	case map[string]any:
		return t[toStr(idx)]
	case string:
		i := int(toNum(idx))
		r := []rune(t)
		if i < 0 {
			i += len(r)
		}
		if i < 0 || i >= len(r) {
			return nil
		}
		return string(r[i])
	default:
		return nil
	}
}

func evalUnary(op string, operand any) (any, error) {
	switch op {
	case "!":
		return !Truthy(operand), nil
	case "-":
		return -toNum(operand), nil
	default:
		return nil, fmt.Errorf("unknown unary operator %q", op)
	}
}

func evalBinary(v BinaryNode, ctx Context) (any, error) {
	left, err := evalNode(v.Left, ctx)
	if err != nil {
		return nil, err
	}
	if v.Op == "&&" {
		if !Truthy(left) {
			return false, nil
		}
		right, err := evalNode(v.Right, ctx)
		if err != nil {
			return nil, err
		}
		return Truthy(right), nil
	}
	if v.Op == "||" {
		if Truthy(left) {
			return true, nil
		}
		right, err := evalNode(v.Right, ctx)
		if err != nil {
			return nil, err
		}
		return Truthy(right), nil
	}
	right, err := evalNode(v.Right, ctx)
	if err != nil {
		return nil, err
	}
	switch v.Op {
	case "+":
		if ls, ok := left.(string); ok {
			return ls + toStr(right), nil
		}
		if rs, ok := right.(string); ok {
			return toStr(left) + rs, nil
		}
		return toNum(left) + toNum(right), nil
	case "-":
		return toNum(left) - toNum(right), nil
	case "*":
		return toNum(left) * toNum(right), nil
	case "/":
		r := toNum(right)
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return toNum(left) / r, nil
	case "%":
		r := toNum(right)
		if r == 0 {
			return nil, fmt.Errorf("division by zero")
		}
		return float64(int(toNum(left)) % int(r)), nil
	case "==":
		return looseEquals(left, right), nil
	case "!=":
		return !looseEquals(left, right), nil
	case "<":
		return compareValues(left, right) < 0, nil
	case "<=":
		return compareValues(left, right) <= 0, nil
	case ">":
		return compareValues(left, right) > 0, nil
	case ">=":
		return compareValues(left, right) >= 0, nil
	default:
		return nil, fmt.Errorf("unknown binary operator %q", v.Op)
	}
}

func looseEquals(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case float64:
		return av == toNum(b)
	case string:
		if bs, ok := b.(string); ok {
			return av == bs
		}
		return false
	case bool:
		if bb, ok := b.(bool); ok {
			return av == bb
		}
		return false
	default:
		return toStr(a) == toStr(b)
	}
}

func compareValues(a, b any) int {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}
	an, bn := toNum(a), toNum(b)
	switch {
	case an < bn:
		return -1
	case an > bn:
		return 1
	default:
		return 0
	}
}
