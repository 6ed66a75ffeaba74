package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/ferrors"
	"github.com/flowscript/flowscript/engine/sourcemap"
)

// errorSink accumulates parse errors without short-circuiting sibling
// parsing, per §8's "parser accumulation" law: a single bad node doesn't
// hide later ones.
type errorSink struct {
	errs []error
}

func (s *errorSink) add(err error) {
	if err != nil {
		s.errs = append(s.errs, err)
	}
}

// pctx carries everything node parsers need to resolve source locations
// and report errors, threaded through the recursive-descent body parser
// instead of repeating the same parameters on every function.
type pctx struct {
	dec       *xml.Decoder
	bodyOffset int // offset of the real body's first byte within the source file
	prefixLen  int // bytes of synthetic "<workflow>" prefix added by parseBody, if any
	sm         *sourcemap.Map
	sink       *errorSink
}

func (p *pctx) loc() sourcemap.Location {
	off := int(p.dec.InputOffset()) - p.prefixLen
	if off < 0 {
		off = 0
	}
	abs := p.bodyOffset + off
	return p.sm.LocationFor(abs, abs)
}

// parseBody decodes the XML body into top-level nodes. The body is
// expected to be wrapped in <workflow>...</workflow>, but a bare sequence
// of node elements is also accepted (the wrapper is added implicitly).
func parseBody(body string, offset int, sm *sourcemap.Map) ([]ast.Node, []error) {
	wrapped := body
	prefixLen := 0
	if !strings.HasPrefix(strings.TrimSpace(body), "<workflow") {
		const prefix = "<workflow>"
		wrapped = prefix + body + "</workflow>"
		prefixLen = len(prefix)
	}

	dec := xml.NewDecoder(strings.NewReader(wrapped))
	// XXE defense: strict mode rejects undeclared entities outright, and
	// encoding/xml never resolves external DTD/SYSTEM entities regardless
	// of this setting — Entity is left nil so only the five predefined
	// XML entities are recognized.
	dec.Strict = true
	dec.Entity = nil

	p := &pctx{dec: dec, bodyOffset: offset, prefixLen: prefixLen, sm: sm, sink: &errorSink{}}

	var root xml.StartElement
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			p.sink.add(ferrors.New(ferrors.KindXmlInvalid, "workflow body has no root element"))
			return nil, p.sink.errs
		}
		if err != nil {
			p.sink.add(ferrors.Wrap(ferrors.KindXmlInvalid, err, "malformed XML body"))
			return nil, p.sink.errs
		}
		if se, ok := tok.(xml.StartElement); ok {
			root = se
			break
		}
	}
	if root.Name.Local != "workflow" {
		p.sink.add(ferrors.New(ferrors.KindXmlInvalid,
			fmt.Sprintf("expected <workflow> root element, found <%s>", root.Name.Local)))
	}

	nodes := parseChildren(p, root.Name)
	return nodes, p.sink.errs
}

// parseChildren reads sibling node elements until the matching close tag
// for parentName, dispatching each StartElement to parseOneNode.
func parseChildren(p *pctx, parentName xml.Name) []ast.Node {
	var nodes []ast.Node
	for {
		tok, err := p.dec.Token()
		if err == io.EOF {
			return nodes
		}
		if err != nil {
			p.sink.add(ferrors.Wrap(ferrors.KindXmlInvalid, err, "malformed XML body"))
			return nodes
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == parentName {
				return nodes
			}
		case xml.StartElement:
			node, err := parseOneNode(p, t)
			if err != nil {
				p.sink.add(err)
				continue
			}
			if node != nil {
				nodes = append(nodes, node)
			}
		}
	}
}

// parseOneNode dispatches a single start element to its NodeAST variant
// constructor based on its tag name.
func parseOneNode(p *pctx, start xml.StartElement) (ast.Node, error) {
	loc := p.loc()
	attrs := attrMap(start)

	switch start.Name.Local {
	case "source":
		return parseSource(p, start, attrs, loc)
	case "transform":
		return parseTransform(p, start, attrs, loc)
	case "sink":
		return parseSink(p, start, attrs, loc)
	case "branch":
		return parseBranch(p, start, attrs, loc)
	case "if":
		return parseIf(p, start, attrs, loc)
	case "loop":
		return parseLoop(p, start, attrs, loc)
	case "while":
		return parseWhile(p, start, attrs, loc)
	case "foreach":
		return parseForeach(p, start, attrs, loc)
	case "parallel":
		return parseParallel(p, start, loc)
	case "checkpoint":
		return parseCheckpoint(p, start, attrs, loc)
	case "include":
		return parseInclude(p, start, attrs, loc)
	case "call":
		return parseCall(p, start, attrs, loc)
	case "phase":
		return parsePhase(p, start, attrs, loc)
	case "context":
		return parseContext(p, start, attrs, loc)
	case "set":
		return parseSet(p, start, attrs, loc)
	case "delay":
		return parseDelay(p, start, attrs, loc)
	case "timeout":
		return parseTimeout(p, start, attrs, loc)
	default:
		if err := skipElement(p.dec, start.Name); err != nil {
			return nil, err
		}
		return nil, ferrors.New(ferrors.KindUnknownNodeType,
			fmt.Sprintf("unknown node tag <%s>", start.Name.Local)).WithLocation(loc)
	}
}

func attrMap(start xml.StartElement) map[string]string {
	m := map[string]string{}
	for _, a := range start.Attr {
		m[a.Name.Local] = a.Value
	}
	return m
}

func nodeID(attrs map[string]string, fallbackAttr string) string {
	if id := attrs["id"]; id != "" {
		return id
	}
	return attrs[fallbackAttr]
}

func requireID(attrs map[string]string, fallbackAttr, tag string, loc sourcemap.Location) (string, error) {
	id := nodeID(attrs, fallbackAttr)
	if id == "" {
		return "", ferrors.New(ferrors.KindMissingRequiredField,
			fmt.Sprintf("<%s> requires an id (or %s)", tag, fallbackAttr)).WithLocation(loc)
	}
	return id, nil
}

// parseErrorConfigAndSkip reads a node's remaining children (including an
// optional <on-error>), returning the resulting ErrorConfig (nil if none
// was present) once the matching EndElement for parentName is reached.
func parseErrorConfigAndSkip(dec *xml.Decoder, parentName xml.Name) (*ast.ErrorConfig, error) {
	var ec *ast.ErrorConfig
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ec, nil
		}
		if err != nil {
			return ec, ferrors.Wrap(ferrors.KindXmlInvalid, err, "malformed XML body")
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == parentName {
				return ec, nil
			}
		case xml.StartElement:
			if t.Name.Local == "on-error" {
				parsed, err := parseOnError(dec, t.Name)
				if err != nil {
					return ec, err
				}
				ec = parsed
			} else {
				if err := skipElement(dec, t.Name); err != nil {
					return ec, err
				}
			}
		}
	}
}

func parseOnError(dec *xml.Decoder, parentName xml.Name) (*ast.ErrorConfig, error) {
	ec := &ast.ErrorConfig{}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return ec, nil
		}
		if err != nil {
			return ec, ferrors.Wrap(ferrors.KindXmlInvalid, err, "malformed XML body")
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == parentName {
				return ec, nil
			}
		case xml.StartElement:
			attrs := attrMap(t)
			switch t.Name.Local {
			case "retry":
				maxAttempts, _ := strconv.Atoi(attrs["max"])
				ec.Retry = &ast.RetryConfig{
					When:    attrs["when"],
					Max:     maxAttempts,
					Backoff: ast.BackoffStrategy(orDefault(attrs["backoff"], string(ast.BackoffExponential))),
				}
				if err := skipElement(dec, t.Name); err != nil {
					return ec, err
				}
			case "fallback":
				ec.Fallback = attrs["node"]
				if ec.Fallback == "" {
					ec.Fallback = attrs["id"]
				}
				if err := skipElement(dec, t.Name); err != nil {
					return ec, err
				}
			default:
				if err := skipElement(dec, t.Name); err != nil {
					return ec, err
				}
			}
		}
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// skipElement consumes tokens until the matching EndElement for name,
// discarding their content. Used for unrecognized or already-handled
// child elements.
func skipElement(dec *xml.Decoder, name xml.Name) error {
	depth := 1
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return ferrors.Wrap(ferrors.KindXmlInvalid, err, "malformed XML body")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name == name {
				depth++
			}
		case xml.EndElement:
			if t.Name == name {
				depth--
				if depth == 0 {
					return nil
				}
			}
		}
	}
}

// readText concatenates CharData/CDATA content until the matching
// EndElement for name, ignoring nested elements (used for leaf text
// content like <template>...</template>).
func readText(dec *xml.Decoder, name xml.Name) (string, error) {
	var sb strings.Builder
	depth := 1
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), ferrors.Wrap(ferrors.KindXmlInvalid, err, "malformed XML body")
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			if t.Name == name {
				depth++
			}
		case xml.EndElement:
			if t.Name == name {
				depth--
				if depth == 0 {
					return sb.String(), nil
				}
			}
		}
	}
}
