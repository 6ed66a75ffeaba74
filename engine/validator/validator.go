// Package validator implements the three-pass static validation of a
// parsed Workflow: structural checks, reference/duplicate resolution, and
// cycle detection over the top-level dependency graph. Grounded in the
// teacher's multi-pass config validation style (engine/domain/workflow's
// Validate chains), generalized to the tagged-variant NodeAST.
package validator

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/flowscript/flowscript/engine/ast"
	"github.com/flowscript/flowscript/engine/ferrors"
	"github.com/flowscript/flowscript/engine/sourcemap"
)

// Result is the outcome of validating a Workflow.
type Result struct {
	Valid    bool
	Errors   []*ferrors.Error
	Warnings []*ferrors.Error
}

// Options configures validation behavior.
type Options struct {
	// Strict promotes every warning to an error.
	Strict bool
}

var identifierRef = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
var secretRef = regexp.MustCompile(`\$secrets\.([A-Za-z_][A-Za-z0-9_]*)`)

// Validate runs all three passes over wf and returns the combined result.
// Pass C is skipped when pass B already reported undefined references,
// since a broken id graph cannot produce a meaningful cycle report.
func Validate(wf *ast.Workflow, opts Options) Result {
	var errs, warns []*ferrors.Error

	structErrs, structWarns := passA(wf)
	errs = append(errs, structErrs...)
	warns = append(warns, structWarns...)

	refErrs, dupErrs := passB(wf)
	errs = append(errs, refErrs...)
	errs = append(errs, dupErrs...)

	if len(refErrs) == 0 && len(dupErrs) == 0 {
		if cycleErr := passC(wf); cycleErr != nil {
			errs = append(errs, cycleErr)
		}
	}

	if opts.Strict {
		errs = append(errs, warns...)
		warns = nil
	}

	return Result{Valid: len(errs) == 0, Errors: errs, Warnings: warns}
}

func locErr(kind ferrors.Kind, msg string, loc sourcemap.Location) *ferrors.Error {
	return ferrors.New(kind, msg).WithLocation(loc)
}

// --- Pass A: structural -----------------------------------------------

func passA(wf *ast.Workflow) (errs, warns []*ferrors.Error) {
	var walk func(nodes []ast.Node)
	walk = func(nodes []ast.Node) {
		for _, n := range nodes {
			e, w := checkNode(n)
			errs = append(errs, e...)
			warns = append(warns, w...)
			for _, children := range ast.Children(n) {
				walk(children)
			}
		}
	}
	walk(wf.Nodes)
	return errs, warns
}

func checkNode(n ast.Node) (errs, warns []*ferrors.Error) {
	loc := n.Base().Loc
	switch v := n.(type) {
	case *ast.TransformNode:
		if v.TransformType == "ai" && v.Base.Input == "" {
			warns = append(warns, locErr(ferrors.KindMissingRequiredField,
				fmt.Sprintf("transform %q: ai transforms should have an input", v.ID), loc))
		}
	case *ast.SinkNode:
		if v.Base.Input == "" {
			warns = append(warns, locErr(ferrors.KindMissingRequiredField,
				fmt.Sprintf("sink %q: sinks should have an input", v.ID), loc))
		}
	case *ast.BranchNode:
		if len(v.Cases) == 0 {
			errs = append(errs, locErr(ferrors.KindMissingRequiredField,
				fmt.Sprintf("branch %q: must have at least one case", v.ID), loc))
		}
		for i, c := range v.Cases {
			if c.When == "" {
				errs = append(errs, locErr(ferrors.KindMissingRequiredField,
					fmt.Sprintf("branch %q: case %d requires a when condition", v.ID, i), loc))
			}
		}
	case *ast.LoopNode:
		if v.MaxIterations <= 0 && v.BreakCondition == "" {
			warns = append(warns, locErr(ferrors.KindMissingRequiredField,
				fmt.Sprintf("loop %q: should declare maxIterations or breakCondition", v.ID), loc))
		}
		if v.MaxIterations < 0 {
			errs = append(errs, locErr(ferrors.KindInvalidFieldType,
				fmt.Sprintf("loop %q: maxIterations must be a positive integer", v.ID), loc))
		}
	case *ast.ForeachNode:
		if v.MaxConcurrency < 0 {
			errs = append(errs, locErr(ferrors.KindInvalidFieldType,
				fmt.Sprintf("foreach %q: maxConcurrency must be a positive integer", v.ID), loc))
		}
	case *ast.CheckpointNode:
		if v.DefaultAction != ast.CheckpointApprove && v.DefaultAction != ast.CheckpointReject {
			errs = append(errs, locErr(ferrors.KindInvalidFieldType,
				fmt.Sprintf("checkpoint %q: default must be approve or reject", v.ID), loc))
		}
	}
	return errs, warns
}

// --- Pass B: references & duplicates ------------------------------------

func passB(wf *ast.Workflow) (refErrs, dupErrs []*ferrors.Error) {
	index, dups := ast.ByID(wf.Nodes)
	for _, id := range dups {
		dupErrs = append(dupErrs, ferrors.New(ferrors.KindDuplicateNodeId,
			fmt.Sprintf("duplicate node id %q", id)))
	}

	secretSet := map[string]bool{}
	for _, s := range wf.Metadata.Secrets {
		secretSet[s] = true
	}

	ast.Walk(wf.Nodes, func(n ast.Node) bool {
		base := n.Base()
		if base.Input != "" {
			if _, ok := index[base.Input]; !ok {
				refErrs = append(refErrs, locErr(ferrors.KindUndefinedNodeRef,
					fmt.Sprintf("node %q: input references undefined node %q", base.ID, base.Input), base.Loc))
			}
		}
		for _, expr := range expressionAttrs(n) {
			for _, m := range secretRef.FindAllStringSubmatch(expr, -1) {
				if !secretSet[m[1]] {
					refErrs = append(refErrs, locErr(ferrors.KindUndefinedSecretRef,
						fmt.Sprintf("node %q: references undeclared secret %q", base.ID, m[1]), base.Loc))
				}
			}
			for _, ref := range candidateNodeRefs(secretRef.ReplaceAllString(expr, "")) {
				if ref == base.ID {
					continue
				}
				if _, ok := index[ref]; !ok {
					if looksLikeNodeRef(expr, ref, index) {
						refErrs = append(refErrs, locErr(ferrors.KindUndefinedNodeRef,
							fmt.Sprintf("node %q: expression references undefined node %q", base.ID, ref), base.Loc))
					}
				}
			}
		}
		return true
	})
	return refErrs, dupErrs
}

// expressionAttrs returns every {{ ... }}-bearing string attribute on a
// node worth scanning for identifier references.
func expressionAttrs(n ast.Node) []string {
	var out []string
	switch v := n.(type) {
	case *ast.IfNode:
		out = append(out, v.Condition)
	case *ast.WhileNode:
		out = append(out, v.Condition)
	case *ast.ForeachNode:
		out = append(out, v.Collection)
	case *ast.LoopNode:
		out = append(out, v.BreakCondition)
	case *ast.BranchNode:
		for _, c := range v.Cases {
			out = append(out, c.When)
		}
	case *ast.SetNode:
		out = append(out, v.Value)
	case *ast.SourceNode:
		out = append(out, stringConfigValues(v.Config)...)
	case *ast.TransformNode:
		out = append(out, stringConfigValues(v.Config)...)
	case *ast.SinkNode:
		out = append(out, stringConfigValues(v.Config)...)
	}
	return out
}

func stringConfigValues(cfg map[string]any) []string {
	var out []string
	for _, v := range cfg {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// candidateNodeRefs extracts bare identifiers that appear as the head of a
// dotted path inside {{ }} segments, e.g. "foo" in "{{ foo.bar }}".
func candidateNodeRefs(expr string) []string {
	var out []string
	for {
		start := strings.Index(expr, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(expr[start:], "}}")
		if end == -1 {
			break
		}
		segment := expr[start+2 : start+end]
		expr = expr[start+end+2:]
		for _, loc := range identifierRef.FindAllStringIndex(segment, -1) {
			// Only the head of a dotted path (e.g. "foo" in "foo.bar") is a
			// candidate node reference; a tail segment preceded by '.' or '$'
			// is a property/local access, not an identifier lookup.
			if loc[0] > 0 && (segment[loc[0]-1] == '.' || segment[loc[0]-1] == '$') {
				continue
			}
			out = append(out, segment[loc[0]:loc[1]])
		}
	}
	return out
}

// looksLikeNodeRef filters out reserved words and locals so candidateNodeRefs
// doesn't flag every function name or keyword as an undefined node.
var reservedWords = map[string]bool{
	"true": true, "false": true, "null": true, "item": true, "index": true,
	"first": true, "last": true, "items": true, "secrets": true, "input": true,
}

func looksLikeNodeRef(expr, ref string, index map[string]ast.Node) bool {
	if reservedWords[ref] {
		return false
	}
	if strings.Contains(expr, ref+"(") {
		return false
	}
	return true
}

// --- Pass C: cycle detection --------------------------------------------

// passC builds the top-level A->B edge graph (B depends on A iff
// B.input == A.id) and runs Kahn's algorithm; on leftover nodes it DFS-
// recovers one concrete cycle for the error message.
func passC(wf *ast.Workflow) *ferrors.Error {
	ids := make([]string, 0, len(wf.Nodes))
	indexByID := map[string]ast.Node{}
	for _, n := range wf.Nodes {
		id := n.Base().ID
		ids = append(ids, id)
		indexByID[id] = n
	}
	sort.Strings(ids)

	edges := map[string][]string{}   // A -> [B, ...] (B depends on A)
	indegree := map[string]int{}
	for _, id := range ids {
		indegree[id] = 0
	}
	for _, n := range wf.Nodes {
		b := n.Base()
		if b.Input != "" {
			if _, ok := indexByID[b.Input]; ok {
				edges[b.Input] = append(edges[b.Input], b.ID)
				indegree[b.ID]++
			}
		}
	}

	queue := make([]string, 0)
	for _, id := range ids {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	visited := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visited++
		next := append([]string{}, edges[cur]...)
		sort.Strings(next)
		for _, nb := range next {
			indegree[nb]--
			if indegree[nb] == 0 {
				queue = append(queue, nb)
			}
		}
	}
	if visited == len(ids) {
		return nil
	}

	remaining := map[string]bool{}
	for _, id := range ids {
		if indegree[id] > 0 {
			remaining[id] = true
		}
	}
	cyclePath := findCycle(remaining, edges)
	var loc sourcemap.Location
	if len(cyclePath) > 0 {
		if n, ok := indexByID[cyclePath[0]]; ok {
			loc = n.Base().Loc
		}
	}
	return locErr(ferrors.KindCircularDependency,
		fmt.Sprintf("circular dependency detected: %s", strings.Join(cyclePath, " -> ")), loc)
}

func findCycle(remaining map[string]bool, edges map[string][]string) []string {
	ids := make([]string, 0, len(remaining))
	for id := range remaining {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	color := map[string]int{} // 0=white 1=gray 2=black
	var path []string
	var dfs func(string) []string
	dfs = func(u string) []string {
		color[u] = 1
		path = append(path, u)
		next := append([]string{}, edges[u]...)
		sort.Strings(next)
		for _, v := range next {
			if !remaining[v] {
				continue
			}
			if color[v] == 1 {
				idx := indexOf(path, v)
				return append(append([]string{}, path[idx:]...), v)
			}
			if color[v] == 0 {
				if found := dfs(v); found != nil {
					return found
				}
			}
		}
		color[u] = 2
		path = path[:len(path)-1]
		return nil
	}
	for _, id := range ids {
		if color[id] == 0 {
			if found := dfs(id); found != nil {
				return found
			}
		}
	}
	return ids
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}
