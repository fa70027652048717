// Package toc contains the data structures that describe a help book table of contents
package toc

const (
	// PathSeparator separator for page paths
	PathSeparator = "/"
	// Indent for json indentation and tree dumps
	Indent = "\t"
	// maxTraversalDepth bounds any recursive descent into untrusted trees
	maxTraversalDepth = 1000
)
