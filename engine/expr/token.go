// Package expr implements FlowScript's inline expression language: the
// tokenizer/parser for {{ expr }} segments, a tree-walking evaluator over
// the layered execution context, and the builtin function registry. The
// grammar (ternary, null-coalescing, property/index access, a large
// builtin registry) has no direct teacher analogue, so the
// tokenizer/parser/evaluator here are hand-rolled rather than grounded in
// a specific teacher file.
package expr

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokDollarIdent // $item, $index, $secrets, ...
	tokOp
	tokLParen
	tokRParen
	tokLBracket
	tokRBracket
	tokComma
	tokDot
	tokQuestion
	tokColon
)

type token struct {
	kind tokenKind
	text string
	num  float64
	pos  int
}

type lexer struct {
	src []rune
	pos int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src)}
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			l.pos++
			continue
		}
		break
	}
}

// next returns the next token, or an error for an unrecognized character
// or an unterminated string literal.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.pos
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}
	r := l.src[l.pos]

	switch {
	case r == '$':
		l.pos++
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokDollarIdent, text: string(l.src[start:l.pos]), pos: start}, nil
	case isIdentStart(r):
		l.pos++
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		return token{kind: tokIdent, text: string(l.src[start:l.pos]), pos: start}, nil
	case isDigit(r):
		l.pos++
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		numStr := string(l.src[start:l.pos])
		var num float64
		_, err := fmt.Sscanf(numStr, "%g", &num)
		if err != nil {
			return token{}, fmt.Errorf("invalid number literal %q at %d", numStr, start)
		}
		return token{kind: tokNumber, text: numStr, num: num, pos: start}, nil
	case r == '"' || r == '\'':
		quote := r
		l.pos++
		var sb strings.Builder
		for {
			if l.pos >= len(l.src) {
				return token{}, fmt.Errorf("unterminated string literal starting at %d", start)
			}
			c := l.src[l.pos]
			if c == quote {
				l.pos++
				break
			}
			if c == '\\' && l.pos+1 < len(l.src) {
				l.pos++
				switch l.src[l.pos] {
				case 'n':
					sb.WriteRune('\n')
				case 't':
					sb.WriteRune('\t')
				case '\\':
					sb.WriteRune('\\')
				case '"':
					sb.WriteRune('"')
				case '\'':
					sb.WriteRune('\'')
				default:
					sb.WriteRune(l.src[l.pos])
				}
				l.pos++
				continue
			}
			sb.WriteRune(c)
			l.pos++
		}
		return token{kind: tokString, text: sb.String(), pos: start}, nil
	case r == '(':
		l.pos++
		return token{kind: tokLParen, pos: start}, nil
	case r == ')':
		l.pos++
		return token{kind: tokRParen, pos: start}, nil
	case r == '[':
		l.pos++
		return token{kind: tokLBracket, pos: start}, nil
	case r == ']':
		l.pos++
		return token{kind: tokRBracket, pos: start}, nil
	case r == ',':
		l.pos++
		return token{kind: tokComma, pos: start}, nil
	case r == '.':
		l.pos++
		return token{kind: tokDot, pos: start}, nil
	case r == '?':
		l.pos++
		if l.peekRune() == '?' {
			l.pos++
			return token{kind: tokOp, text: "??", pos: start}, nil
		}
		return token{kind: tokQuestion, pos: start}, nil
	case r == ':':
		l.pos++
		return token{kind: tokColon, pos: start}, nil
	default:
		for _, op := range []string{"==", "!=", "<=", ">=", "&&", "||", "+", "-", "*", "/", "%", "<", ">", "!"} {
			if l.matchLiteral(op) {
				l.pos += len([]rune(op))
				return token{kind: tokOp, text: op, pos: start}, nil
			}
		}
		return token{}, fmt.Errorf("unexpected character %q at %d", r, start)
	}
}

func (l *lexer) matchLiteral(s string) bool {
	runes := []rune(s)
	if l.pos+len(runes) > len(l.src) {
		return false
	}
	for i, r := range runes {
		if l.src[l.pos+i] != r {
			return false
		}
	}
	return true
}
