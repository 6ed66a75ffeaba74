package parser

import (
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/ferrors"
	"github.com/flowscript/flowscript/engine/sourcemap"
)

var validSourceTypes = map[string]bool{"http": true, "file": true}
var validTransformTypes = map[string]bool{"ai": true, "template": true, "map": true, "filter": true}

func configFromAttrs(attrs map[string]string, skip ...string) map[string]any {
	skipSet := map[string]bool{"id": true}
	for _, s := range skip {
		skipSet[s] = true
	}
	cfg := map[string]any{}
	for k, v := range attrs {
		if skipSet[k] {
			continue
		}
		cfg[k] = v
	}
	return cfg
}

func baseOf(id string, loc sourcemap.Location, attrs map[string]string, ec *ast.ErrorConfig) ast.Base {
	return ast.Base{ID: id, Loc: loc, Input: attrs["input"], ErrorConfig: ec}
}

func parseSource(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "source", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	sourceType := attrs["type"]
	if !validSourceTypes[sourceType] {
		skipElement(p.dec, start.Name)
		return nil, ferrors.New(ferrors.KindInvalidFieldType,
			fmt.Sprintf("source %q: invalid type %q (expected http|file)", id, sourceType)).WithLocation(loc)
	}
	ec, err := parseErrorConfigAndSkip(p.dec, start.Name)
	if err != nil {
		return nil, err
	}
	return &ast.SourceNode{
		Base:       baseOf(id, loc, attrs, ec),
		SourceType: sourceType,
		Config:     configFromAttrs(attrs, "type", "input"),
	}, nil
}

func parseTransform(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "transform", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	transformType := attrs["type"]
	if !validTransformTypes[transformType] {
		skipElement(p.dec, start.Name)
		return nil, ferrors.New(ferrors.KindInvalidFieldType,
			fmt.Sprintf("transform %q: invalid type %q", id, transformType)).WithLocation(loc)
	}
	cfg := configFromAttrs(attrs, "type", "input")

	var ec *ast.ErrorConfig
	depth := 1
	for depth > 0 {
		tok, err := p.dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "on-error" {
				parsed, err := parseOnError(p.dec, t.Name)
				if err != nil {
					return nil, err
				}
				ec = parsed
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if transformType == "template" {
				if s, ok := cfg["template"].(string); ok {
					cfg["template"] = s + string(t)
				} else {
					cfg["template"] = string(t)
				}
			}
		}
	}
	return &ast.TransformNode{
		Base:          baseOf(id, loc, attrs, ec),
		TransformType: transformType,
		Config:        cfg,
	}, nil
}

func parseSink(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "sink", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	sinkType := attrs["type"]
	if sinkType == "" {
		skipElement(p.dec, start.Name)
		return nil, ferrors.New(ferrors.KindMissingRequiredField,
			fmt.Sprintf("sink %q: type is required", id)).WithLocation(loc)
	}
	ec, err := parseErrorConfigAndSkip(p.dec, start.Name)
	if err != nil {
		return nil, err
	}
	return &ast.SinkNode{
		Base:     baseOf(id, loc, attrs, ec),
		SinkType: sinkType,
		Config:   configFromAttrs(attrs, "type", "input"),
	}, nil
}

func parseBranch(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "branch", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	var cases []ast.BranchCase
	var def []ast.Node
	var ec *ast.ErrorConfig
	for {
		tok, err := p.dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == start.Name {
				return &ast.BranchNode{Base: baseOf(id, loc, attrs, ec), Cases: cases, Default: def}, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "case":
				cattrs := attrMap(t)
				nodes := parseChildren(p, t.Name)
				cases = append(cases, ast.BranchCase{When: cattrs["when"], Nodes: nodes})
			case "default":
				def = parseChildren(p, t.Name)
			case "on-error":
				ec, err = parseOnError(p.dec, t.Name)
				if err != nil {
					return nil, err
				}
			default:
				skipElement(p.dec, t.Name)
			}
		}
	}
	return &ast.BranchNode{Base: baseOf(id, loc, attrs, ec), Cases: cases, Default: def}, nil
}

func parseIf(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "if", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	var thenNodes, elseNodes []ast.Node
	var ec *ast.ErrorConfig
	for {
		tok, err := p.dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == start.Name {
				return &ast.IfNode{Base: baseOf(id, loc, attrs, ec), Condition: attrs["condition"], Then: thenNodes, Else: elseNodes}, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "then":
				thenNodes = parseChildren(p, t.Name)
			case "else":
				elseNodes = parseChildren(p, t.Name)
			case "on-error":
				ec, err = parseOnError(p.dec, t.Name)
				if err != nil {
					return nil, err
				}
			default:
				skipElement(p.dec, t.Name)
			}
		}
	}
	return &ast.IfNode{Base: baseOf(id, loc, attrs, ec), Condition: attrs["condition"], Then: thenNodes, Else: elseNodes}, nil
}

func parseLoop(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "loop", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	maxIter := 0
	if v, ok := attrs["maxIterations"]; ok {
		maxIter, _ = strconv.Atoi(v)
	}
	var body []ast.Node
	var ec *ast.ErrorConfig
	for {
		tok, err := p.dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == start.Name {
				return &ast.LoopNode{Base: baseOf(id, loc, attrs, ec), MaxIterations: maxIter, BreakCondition: attrs["breakCondition"], Body: body}, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "body":
				body = parseChildren(p, t.Name)
			case "on-error":
				ec, err = parseOnError(p.dec, t.Name)
				if err != nil {
					return nil, err
				}
			default:
				node, err := parseOneNode(p, t)
				if err == nil && node != nil {
					body = append(body, node)
				}
			}
		}
	}
	return &ast.LoopNode{Base: baseOf(id, loc, attrs, ec), MaxIterations: maxIter, BreakCondition: attrs["breakCondition"], Body: body}, nil
}

func parseWhile(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "while", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	var body []ast.Node
	var ec *ast.ErrorConfig
	for {
		tok, err := p.dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == start.Name {
				return &ast.WhileNode{Base: baseOf(id, loc, attrs, ec), Condition: attrs["condition"], Body: body}, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "body":
				body = parseChildren(p, t.Name)
			case "on-error":
				ec, err = parseOnError(p.dec, t.Name)
				if err != nil {
					return nil, err
				}
			default:
				node, err := parseOneNode(p, t)
				if err == nil && node != nil {
					body = append(body, node)
				}
			}
		}
	}
	return &ast.WhileNode{Base: baseOf(id, loc, attrs, ec), Condition: attrs["condition"], Body: body}, nil
}

func parseForeach(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "foreach", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	maxConcurrency := 0
	if v, ok := attrs["maxConcurrency"]; ok {
		maxConcurrency, _ = strconv.Atoi(v)
	}
	var body []ast.Node
	var ec *ast.ErrorConfig
	for {
		tok, err := p.dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == start.Name {
				return &ast.ForeachNode{
					Base: baseOf(id, loc, attrs, ec), Collection: attrs["collection"],
					ItemVar: attrs["itemVar"], MaxConcurrency: maxConcurrency, Body: body,
				}, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "body":
				body = parseChildren(p, t.Name)
			case "on-error":
				ec, err = parseOnError(p.dec, t.Name)
				if err != nil {
					return nil, err
				}
			default:
				node, err := parseOneNode(p, t)
				if err == nil && node != nil {
					body = append(body, node)
				}
			}
		}
	}
	return &ast.ForeachNode{
		Base: baseOf(id, loc, attrs, ec), Collection: attrs["collection"],
		ItemVar: attrs["itemVar"], MaxConcurrency: maxConcurrency, Body: body,
	}, nil
}

func parseParallel(p *pctx, start xml.StartElement, loc sourcemap.Location) (ast.Node, error) {
	attrs := attrMap(start)
	id, err := requireID(attrs, "id", "parallel", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	var branches [][]ast.Node
	var ec *ast.ErrorConfig
	for {
		tok, err := p.dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == start.Name {
				return &ast.ParallelNode{Base: baseOf(id, loc, attrs, ec), Branches: branches}, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "branch":
				branches = append(branches, parseChildren(p, t.Name))
			case "on-error":
				ec, err = parseOnError(p.dec, t.Name)
				if err != nil {
					return nil, err
				}
			default:
				skipElement(p.dec, t.Name)
			}
		}
	}
	return &ast.ParallelNode{Base: baseOf(id, loc, attrs, ec), Branches: branches}, nil
}

func parseCheckpoint(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "checkpoint", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	def := ast.CheckpointDefaultAction(attrs["default"])
	if def == "" {
		def = ast.CheckpointReject
	}
	ec, err := parseErrorConfigAndSkip(p.dec, start.Name)
	if err != nil {
		return nil, err
	}
	return &ast.CheckpointNode{
		Base: baseOf(id, loc, attrs, ec), Prompt: attrs["prompt"],
		Timeout: attrs["timeout"], DefaultAction: def,
	}, nil
}

func parseInclude(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "include", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	var bindings []ast.Binding
	var ec *ast.ErrorConfig
	for {
		tok, err := p.dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == start.Name {
				return &ast.IncludeNode{Base: baseOf(id, loc, attrs, ec), Workflow: attrs["workflow"], Bindings: bindings}, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "bind":
				battrs := attrMap(t)
				bindings = append(bindings, ast.Binding{Key: battrs["key"], Value: battrs["value"]})
				skipElement(p.dec, t.Name)
			case "on-error":
				ec, err = parseOnError(p.dec, t.Name)
				if err != nil {
					return nil, err
				}
			default:
				skipElement(p.dec, t.Name)
			}
		}
	}
	return &ast.IncludeNode{Base: baseOf(id, loc, attrs, ec), Workflow: attrs["workflow"], Bindings: bindings}, nil
}

func parseCall(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "call", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	args := map[string]any{}
	var ec *ast.ErrorConfig
	for {
		tok, err := p.dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == start.Name {
				return &ast.CallNode{Base: baseOf(id, loc, attrs, ec), Workflow: attrs["workflow"], Args: args}, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "arg":
				aattrs := attrMap(t)
				args[aattrs["key"]] = aattrs["value"]
				skipElement(p.dec, t.Name)
			case "on-error":
				ec, err = parseOnError(p.dec, t.Name)
				if err != nil {
					return nil, err
				}
			default:
				skipElement(p.dec, t.Name)
			}
		}
	}
	return &ast.CallNode{Base: baseOf(id, loc, attrs, ec), Workflow: attrs["workflow"], Args: args}, nil
}

func parsePhase(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "name", "phase", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	children := parseChildren(p, start.Name)
	return &ast.PhaseNode{Base: baseOf(id, loc, attrs, nil), Name: orDefault(attrs["name"], id), Children: children}, nil
}

func parseContext(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "context", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	var entries []ast.ContextEntry
	for {
		tok, err := p.dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == start.Name {
				return &ast.ContextNode{Base: baseOf(id, loc, attrs, nil), Entries: entries}, nil
			}
		case xml.StartElement:
			if t.Name.Local == "entry" {
				eattrs := attrMap(t)
				entries = append(entries, ast.ContextEntry{Key: eattrs["key"], Value: eattrs["value"]})
			}
			skipElement(p.dec, t.Name)
		}
	}
	return &ast.ContextNode{Base: baseOf(id, loc, attrs, nil), Entries: entries}, nil
}

func parseSet(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "var", "set", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	if err := skipElement(p.dec, start.Name); err != nil {
		return nil, err
	}
	return &ast.SetNode{Base: baseOf(id, loc, attrs, nil), Var: orDefault(attrs["var"], id), Value: attrs["value"]}, nil
}

func parseDelay(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "delay", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	if attrs["duration"] == "" {
		skipElement(p.dec, start.Name)
		return nil, ferrors.New(ferrors.KindMissingRequiredField,
			fmt.Sprintf("delay %q: duration is required", id)).WithLocation(loc)
	}
	ec, err := parseErrorConfigAndSkip(p.dec, start.Name)
	if err != nil {
		return nil, err
	}
	return &ast.DelayNode{Base: baseOf(id, loc, attrs, ec), Duration: attrs["duration"]}, nil
}

func parseTimeout(p *pctx, start xml.StartElement, attrs map[string]string, loc sourcemap.Location) (ast.Node, error) {
	id, err := requireID(attrs, "id", "timeout", loc)
	if err != nil {
		skipElement(p.dec, start.Name)
		return nil, err
	}
	var children []ast.Node
	var ec *ast.ErrorConfig
	for {
		tok, err := p.dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name == start.Name {
				return &ast.TimeoutNode{
					Base: baseOf(id, loc, attrs, ec), Duration: attrs["duration"],
					OnTimeout: attrs["onTimeout"], Children: children,
				}, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "on-error":
				ec, err = parseOnError(p.dec, t.Name)
				if err != nil {
					return nil, err
				}
			default:
				node, err := parseOneNode(p, t)
				if err == nil && node != nil {
					children = append(children, node)
				}
			}
		}
	}
	return &ast.TimeoutNode{
		Base: baseOf(id, loc, attrs, ec), Duration: attrs["duration"],
		OnTimeout: attrs["onTimeout"], Children: children,
	}, nil
}
