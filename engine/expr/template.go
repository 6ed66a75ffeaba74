package expr

import "strings"

// EvalTemplate evaluates a template string containing zero or more
// {{ expr }} segments. A template consisting of exactly one expression
// segment and no surrounding literal text returns the expression's raw
// value (any type); otherwise every segment is stringified and
// concatenated with the literal text between them.
func EvalTemplate(template string, ctx Context) (any, error) {
	segments, err := splitTemplate(template)
	if err != nil {
		return nil, err
	}
	if len(segments) == 1 && segments[0].isExpr {
		return Eval(segments[0].text, ctx)
	}

	var sb strings.Builder
	for _, seg := range segments {
		if !seg.isExpr {
			sb.WriteString(seg.text)
			continue
		}
		v, err := Eval(seg.text, ctx)
		if err != nil {
			return nil, err
		}
		sb.WriteString(toStr(v))
	}
	return sb.String(), nil
}

type templateSegment struct {
	text   string
	isExpr bool
}

// splitTemplate tokenizes template into literal/expression segments,
// honoring nested braces and string literals so a "}}" inside a string
// argument doesn't terminate the segment early.
func splitTemplate(template string) ([]templateSegment, error) {
	var segments []templateSegment
	var literal strings.Builder
	runes := []rune(template)
	i := 0
	for i < len(runes) {
		if runes[i] == '{' && i+1 < len(runes) && runes[i+1] == '{' {
			if literal.Len() > 0 {
				segments = append(segments, templateSegment{text: literal.String()})
				literal.Reset()
			}
			start := i + 2
			j, err := findExprEnd(runes, start)
			if err != nil {
				return nil, err
			}
			segments = append(segments, templateSegment{text: string(runes[start:j]), isExpr: true})
			i = j + 2
			continue
		}
		literal.WriteRune(runes[i])
		i++
	}
	if literal.Len() > 0 {
		segments = append(segments, templateSegment{text: literal.String()})
	}
	if len(segments) == 0 {
		segments = append(segments, templateSegment{text: ""})
	}
	return segments, nil
}

// findExprEnd scans forward from start for the closing "}}", skipping
// over quoted string contents so braces or quotes inside them are inert.
func findExprEnd(runes []rune, start int) (int, error) {
	i := start
	for i < len(runes) {
		switch runes[i] {
		case '"', '\'':
			quote := runes[i]
			i++
			for i < len(runes) && runes[i] != quote {
				if runes[i] == '\\' {
					i++
				}
				i++
			}
			i++
		case '}':
			if i+1 < len(runes) && runes[i+1] == '}' {
				return i, nil
			}
			i++
		default:
			i++
		}
	}
	return 0, errUnterminatedExpr
}

var errUnterminatedExpr = templateError("unterminated {{ expression")

type templateError string

func (e templateError) Error() string { return string(e) }
