package toc

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrMalformedNode a node from the backend does not have the expected shape
var ErrMalformedNode = errors.New("malformed page node")

type rawNode struct {
	Title       *string    `json:"title"`
	PagePath    *string    `json:"pagePath"`
	Path        []int      `json:"path"`
	HasChildren bool       `json:"hasChildren"`
	Children    []*rawNode `json:"children"`
}

// Decode parses a list of page nodes and rejects malformed ones early
func Decode(data []byte) ([]*PageNode, error) {
	var raw []*rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal page nodes")
	}
	return convert(raw, 0)
}

func convert(raw []*rawNode, level int) ([]*PageNode, error) {
	if level > maxTraversalDepth {
		return nil, errors.Wrap(ErrMalformedNode, "tree too deep")
	}
	nodes := make([]*PageNode, 0, len(raw))
	for i, r := range raw {
		if r == nil {
			return nil, errors.Wrapf(ErrMalformedNode, "null entry at index %d", i)
		}
		if r.Title == nil {
			return nil, errors.Wrapf(ErrMalformedNode, "missing title at index %d", i)
		}
		if r.PagePath == nil || *r.PagePath == "" {
			return nil, errors.Wrapf(ErrMalformedNode, "missing pagePath for %q", *r.Title)
		}
		children, err := convert(r.Children, level+1)
		if err != nil {
			return nil, errors.Wrapf(err, "in children of %q", *r.PagePath)
		}
		n := &PageNode{
			Title:       *r.Title,
			PagePath:    *r.PagePath,
			Path:        r.Path,
			HasChildren: r.HasChildren,
		}
		if len(children) > 0 {
			n.Children = children
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}
