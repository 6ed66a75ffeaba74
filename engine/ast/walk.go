package ast

// Walk invokes visit for every node reachable from roots, recursing into
// control-flow children. Traversal order is depth-first, source order.
// Returning false from visit stops recursion into that node's children
// (the node itself was already visited).
func Walk(roots []Node, visit func(Node) bool) {
	var walk func([]Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			if !visit(n) {
				continue
			}
			for _, childList := range Children(n) {
				walk(childList)
			}
		}
	}
	walk(roots)
}

// All collects every node reachable from roots, in depth-first source
// order, including roots themselves.
func All(roots []Node) []Node {
	var out []Node
	Walk(roots, func(n Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// ByID indexes every node reachable from roots by its id. When two nodes
// share an id, the first encountered (source order) wins and dup reports
// the duplicate ids encountered.
func ByID(roots []Node) (index map[string]Node, dups []string) {
	index = map[string]Node{}
	seen := map[string]bool{}
	Walk(roots, func(n Node) bool {
		id := n.Base().ID
		if id == "" {
			return true
		}
		if seen[id] {
			dups = append(dups, id)
		} else {
			seen[id] = true
			index[id] = n
		}
		return true
	})
	return index, dups
}
