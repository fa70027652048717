package responses

import "github.com/foomo/hbkbrowser/toc"

// SearchHit - one result of a full text search
type SearchHit struct {
	Title    string `json:"title"`
	PagePath string `json:"pagePath"`
	Section  string `json:"section"`
	Snippet  string `json:"snippet,omitempty"`
	// pre populated subtree, must never trigger lazy loads
	Pages []*toc.PageNode `json:"pages,omitempty"`
}

// Search - search results
type Search struct {
	Query string       `json:"query"`
	Hits  []*SearchHit `json:"hits"`
}
