package toc

import (
	"fmt"
	"strings"
	"sync"
)

// PageNode one entry in a table of contents
type PageNode struct {
	Title       string      `json:"title"`
	PagePath    string      `json:"pagePath"`    // opaque, only unique among siblings
	Path        []int       `json:"path"`        // index path from the root
	HasChildren bool        `json:"hasChildren"` // children exist, even if they were not sent
	Children    []*PageNode `json:"children,omitempty"`

	mu      sync.Mutex
	loaded  bool  // a children fetch has finished
	loadErr error // last children fetch failure
}

// HasExpandableChildren the node can be opened in a tree
func HasExpandableChildren(n *PageNode) bool {
	if n == nil {
		return false
	}
	return n.HasChildren || len(n.ChildNodes()) > 0
}

// NeedsLazyLoad the node has to fetch its children before it can be descended into.
// Search results arrive fully populated and never trigger a fetch.
func NeedsLazyLoad(n *PageNode, isSearchResult bool) bool {
	if isSearchResult || !HasExpandableChildren(n) {
		return false
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Children) == 0 && !n.loaded
}

// ID structural identifier of the node at the given depth
func (n *PageNode) ID(depth int) ID {
	return NodeID(n.PagePath, depth)
}

// ChildNodes returns the currently attached children
func (n *PageNode) ChildNodes() []*PageNode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Children
}

// Attach sets the result of a children fetch. On error the node is treated as
// loaded without children and keeps the error as its notice.
func (n *PageNode) Attach(children []*PageNode, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loaded = true
	n.loadErr = err
	if err != nil {
		n.Children = nil
		return
	}
	n.Children = children
}

// Loaded a children fetch has finished for this node
func (n *PageNode) Loaded() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loaded
}

// LoadErr the error notice of the last failed children fetch
func (n *PageNode) LoadErr() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.loadErr
}

// Reset forgets a previous fetch, so that the node will be loaded again
func (n *PageNode) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.loaded = false
	n.loadErr = nil
	n.Children = nil
}

// PrintNode essentially a recursive dump
func (n *PageNode) PrintNode(b *strings.Builder, depth int) {
	seen := map[*PageNode]bool{}
	n.printNode(b, depth, seen)
}

func (n *PageNode) printNode(b *strings.Builder, depth int, seen map[*PageNode]bool) {
	if seen[n] || depth > maxTraversalDepth {
		return
	}
	seen[n] = true
	marker := " "
	if HasExpandableChildren(n) {
		marker = "+"
	}
	fmt.Fprintf(b, "%s%s %s (%s)\n", strings.Repeat(Indent, depth), marker, n.Title, n.PagePath)
	for _, child := range n.ChildNodes() {
		child.printNode(b, depth+1, seen)
	}
}
