package toc

// Visitor is called for every node of a walk with the depth of the node.
// Returning false stops the walk.
type Visitor func(n *PageNode, depth int) bool

// Walk visits all attached nodes depth first. Nodes that were visited before are
// skipped, so cyclic data from the backend can not trap it.
func Walk(roots []*PageNode, fn Visitor) {
	visited := map[*PageNode]struct{}{}
	walk(roots, 0, visited, fn)
}

func walk(nodes []*PageNode, depth int, visited map[*PageNode]struct{}, fn Visitor) bool {
	if depth > maxTraversalDepth {
		return true
	}
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, ok := visited[n]; ok {
			continue
		}
		visited[n] = struct{}{}
		if !fn(n, depth) {
			return false
		}
		if !walk(n.ChildNodes(), depth+1, visited, fn) {
			return false
		}
	}
	return true
}

// Find returns the first node matching pred together with its depth
func Find(roots []*PageNode, pred func(n *PageNode, depth int) bool) (found *PageNode, foundDepth int, ok bool) {
	Walk(roots, func(n *PageNode, depth int) bool {
		if pred(n, depth) {
			found, foundDepth, ok = n, depth, true
			return false
		}
		return true
	})
	return found, foundDepth, ok
}

// FindByID finds a node by its structural id
func FindByID(roots []*PageNode, id ID) (*PageNode, int, bool) {
	pagePath, depth, ok := id.Split()
	if !ok {
		return nil, 0, false
	}
	return Find(roots, func(n *PageNode, d int) bool {
		return d == depth && n.PagePath == pagePath
	})
}

// FindByPagePath finds the shallowest node with the given page path
func FindByPagePath(roots []*PageNode, pagePath string) (*PageNode, int, bool) {
	var (
		found *PageNode
		depth int
	)
	Walk(roots, func(n *PageNode, d int) bool {
		if n.PagePath == pagePath && (found == nil || d < depth) {
			found, depth = n, d
		}
		return true
	})
	return found, depth, found != nil
}

// Count number of attached nodes
func Count(roots []*PageNode) int {
	count := 0
	Walk(roots, func(*PageNode, int) bool {
		count++
		return true
	})
	return count
}
