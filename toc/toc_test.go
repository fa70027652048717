package toc

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasExpandableChildren(t *testing.T) {
	assert.False(t, HasExpandableChildren(nil))
	assert.False(t, HasExpandableChildren(&PageNode{PagePath: "leaf"}))
	assert.True(t, HasExpandableChildren(&PageNode{PagePath: "lazy", HasChildren: true}))
	assert.True(t, HasExpandableChildren(&PageNode{PagePath: "embedded", Children: []*PageNode{{PagePath: "a"}}}))
}

func TestNeedsLazyLoad(t *testing.T) {
	lazy := &PageNode{PagePath: "guide", HasChildren: true}
	assert.True(t, NeedsLazyLoad(lazy, false))
	assert.False(t, NeedsLazyLoad(lazy, true), "search results never load")

	embedded := &PageNode{PagePath: "guide", HasChildren: true, Children: []*PageNode{{PagePath: "guide/a"}}}
	assert.False(t, NeedsLazyLoad(embedded, false))

	assert.False(t, NeedsLazyLoad(&PageNode{PagePath: "leaf"}, false))

	lazy.Attach(nil, errors.New("boom"))
	assert.False(t, NeedsLazyLoad(lazy, false), "a failed load is a finished load")
	assert.True(t, lazy.Loaded())
	assert.EqualError(t, lazy.LoadErr(), "boom")

	lazy.Reset()
	assert.True(t, NeedsLazyLoad(lazy, false))
}

func TestNodeIDUniqueAcrossDepths(t *testing.T) {
	shallow := &PageNode{PagePath: "intro"}
	deep := &PageNode{PagePath: "intro"}
	assert.NotEqual(t, shallow.ID(0), deep.ID(2))
	assert.Equal(t, ID("guide-0"), NodeID("guide", 0))

	pagePath, depth, ok := NodeID("a-b/c-d", 3).Split()
	require.True(t, ok)
	assert.Equal(t, "a-b/c-d", pagePath)
	assert.Equal(t, 3, depth)

	_, _, ok = ID("nodepth").Split()
	assert.False(t, ok)
}

func TestIDSet(t *testing.T) {
	s := NewIDSet("b-1", "a-0")
	c := s.Clone()
	c.Add("c-2")
	assert.False(t, s.Has("c-2"))
	assert.True(t, c.Has("c-2"))
	assert.Equal(t, []string{"a-0", "b-1"}, s.Sorted())
}

func TestDecode(t *testing.T) {
	nodes, err := Decode([]byte(`[
		{"title":"Guide","pagePath":"guide","path":[0],"hasChildren":true,"children":[]},
		{"title":"Reference","pagePath":"ref","path":[1],"children":[
			{"title":"Intro","pagePath":"ref/intro.html","path":[1,0]}
		]}
	]`))
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Nil(t, nodes[0].Children, "empty children mean not loaded")
	assert.True(t, NeedsLazyLoad(nodes[0], false))
	require.Len(t, nodes[1].Children, 1)
	assert.Equal(t, "ref/intro.html", nodes[1].Children[0].PagePath)
}

func TestDecodeRejectsMalformedNodes(t *testing.T) {
	for name, data := range map[string]string{
		"missing title":    `[{"pagePath":"a"}]`,
		"missing pagePath": `[{"title":"A"}]`,
		"empty pagePath":   `[{"title":"A","pagePath":""}]`,
		"null entry":       `[null]`,
		"null child":       `[{"title":"A","pagePath":"a","children":[null]}]`,
		"title not string": `[{"title":1,"pagePath":"a"}]`,
		"not a list":       `{"title":"A","pagePath":"a"}`,
		"bad nested child": `[{"title":"A","pagePath":"a","children":[{"title":"B"}]}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Decode([]byte(data))
			assert.Error(t, err)
		})
	}
	_, err := Decode([]byte(`[{"title":"B"}]`))
	assert.True(t, errors.Is(err, ErrMalformedNode))
}

func TestWalkSurvivesCycles(t *testing.T) {
	root := &PageNode{Title: "Root", PagePath: "root", HasChildren: true}
	child := &PageNode{Title: "Child", PagePath: "root/child", HasChildren: true}
	root.Attach([]*PageNode{child}, nil)
	child.Attach([]*PageNode{root}, nil)

	assert.Equal(t, 2, Count([]*PageNode{root}))

	_, _, ok := FindByPagePath([]*PageNode{root}, "missing")
	assert.False(t, ok)

	var b strings.Builder
	root.PrintNode(&b, 0)
	assert.Equal(t, 2, strings.Count(b.String(), "\n"))
}

func TestFind(t *testing.T) {
	roots, err := Decode([]byte(`[
		{"title":"Intro","pagePath":"intro"},
		{"title":"Guide","pagePath":"guide","children":[
			{"title":"Intro","pagePath":"intro"}
		]}
	]`))
	require.NoError(t, err)

	n, depth, ok := FindByID(roots, NodeID("intro", 1))
	require.True(t, ok)
	assert.Equal(t, 1, depth)
	assert.Same(t, roots[1].Children[0], n)

	n, depth, ok = FindByPagePath(roots, "intro")
	require.True(t, ok)
	assert.Equal(t, 0, depth)
	assert.Same(t, roots[0], n)

	_, _, ok = FindByID(roots, "garbage")
	assert.False(t, ok)
}

func TestIDSetJSON(t *testing.T) {
	data, err := json.Marshal(NewIDSet("b-1", "a-0"))
	require.NoError(t, err)
	assert.JSONEq(t, `["a-0","b-1"]`, string(data))

	var s IDSet
	require.NoError(t, json.Unmarshal(data, &s))
	assert.True(t, s.Has("b-1"))
	assert.Len(t, s, 2)
}
