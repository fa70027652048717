package mock

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/foomo/hbkbrowser/responses"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	// Backend an in memory help backend serving backend.json
	Backend struct {
		*httptest.Server
		data     fixture
		mu       sync.Mutex
		calls    map[string]int
		failures map[string]int
		gates    map[string]chan struct{}
	}
	fixture struct {
		Version       string                                       `json:"version"`
		Locales       []string                                     `json:"locales"`
		Books         map[string][]*node                           `json:"books"`
		Content       map[string]map[string]string                 `json:"content"`
		Links         map[string]*responses.Resolve                `json:"links"`
		PageLocations map[string]*responses.Resolve                `json:"pageLocations"`
		Search        map[string]map[string][]*responses.SearchHit `json:"search"`
	}
	node struct {
		Title    string  `json:"title"`
		PagePath string  `json:"pagePath"`
		Children []*node `json:"children,omitempty"`
	}
	wireNode struct {
		Title       string      `json:"title"`
		PagePath    string      `json:"pagePath"`
		Path        []int       `json:"path"`
		HasChildren bool        `json:"hasChildren"`
		Children    []*wireNode `json:"children"`
	}
)

// NewBackend starts a mock backend, that is closed with the test
func NewBackend(tb testing.TB) *Backend {
	tb.Helper()
	_, filename, _, _ := runtime.Caller(0)
	data, err := os.ReadFile(path.Join(path.Dir(filename), "backend.json"))
	if err != nil {
		tb.Fatal("could not read mock data", err)
	}
	b := &Backend{
		calls:    map[string]int{},
		failures: map[string]int{},
		gates:    map[string]chan struct{}{},
	}
	if err := json.Unmarshal(data, &b.data); err != nil {
		tb.Fatal("could not parse mock data", err)
	}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serveHTTP))
	tb.Cleanup(b.Close)
	return b
}

// Calls number of requests for the given url path
func (b *Backend) Calls(urlPath string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[urlPath]
}

// TotalCalls number of requests for all url paths with the given prefix
func (b *Backend) TotalCalls(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for p, n := range b.calls {
		if strings.HasPrefix(p, prefix) {
			total += n
		}
	}
	return total
}

// Fail makes every request for urlPath answer with status
func (b *Backend) Fail(urlPath string, status int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[urlPath] = status
}

// Recover stops failing requests for urlPath
func (b *Backend) Recover(urlPath string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.failures, urlPath)
}

// Gate holds back requests for urlPath until the returned func is called
func (b *Backend) Gate(urlPath string) (release func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	gate := make(chan struct{})
	b.gates[urlPath] = gate
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

func (b *Backend) serveHTTP(w http.ResponseWriter, r *http.Request) {
	p := r.URL.Path
	b.mu.Lock()
	b.calls[p]++
	status, fail := b.failures[p]
	gate := b.gates[p]
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if fail {
		http.Error(w, http.StatusText(status), status)
		return
	}

	locale := r.Header.Get("Accept-Language")
	if locale == "" {
		locale = "ru"
	}

	switch {
	case p == "/api/app/info":
		b.reply(w, responses.AppInfo{Version: b.data.Version, Locales: b.data.Locales})
	case p == "/api/toc/resolve":
		b.replyResolve(w, b.data.PageLocations[r.URL.Query().Get("pageLocation")])
	case p == "/api/v8help/resolve":
		b.replyResolve(w, b.data.Links[r.URL.Query().Get("link")])
	case p == "/api/search":
		hits := b.data.Search[locale][r.URL.Query().Get("query")]
		if hits == nil {
			hits = []*responses.SearchHit{}
		}
		b.reply(w, responses.Search{Query: r.URL.Query().Get("query"), Hits: hits})
	case strings.HasPrefix(p, "/api/toc/"):
		depth, err := strconv.Atoi(r.URL.Query().Get("depth"))
		if err != nil || depth < 1 {
			depth = 1
		}
		nodes, ok := b.subtree(locale, strings.TrimPrefix(p, "/api/toc/"), depth)
		if !ok {
			http.NotFound(w, r)
			return
		}
		b.reply(w, nodes)
	case strings.HasPrefix(p, "/api/content/"):
		pagePath := strings.TrimPrefix(p, "/api/content/")
		html, ok := b.data.Content[locale][pagePath]
		if !ok {
			if _, found := find(b.data.Books[locale], pagePath); !found {
				http.NotFound(w, r)
				return
			}
			html = "<h1>" + pagePath + "</h1>"
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(html))
	default:
		http.NotFound(w, r)
	}
}

func (b *Backend) reply(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (b *Backend) replyResolve(w http.ResponseWriter, res *responses.Resolve) {
	if res == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	b.reply(w, res)
}

func (b *Backend) subtree(locale, sectionPath string, depth int) ([]*wireNode, bool) {
	roots := b.data.Books[locale]
	if sectionPath == "" {
		return toWire(roots, nil, depth), true
	}
	n, ok := find(roots, sectionPath)
	if !ok {
		return nil, false
	}
	return toWire(n.Children, n.path, depth), true
}

type match struct {
	*node
	path []int
}

func find(nodes []*node, pagePath string) (*match, bool) {
	var walk func(nodes []*node, prefix []int) *match
	walk = func(nodes []*node, prefix []int) *match {
		for i, n := range nodes {
			p := append(append([]int{}, prefix...), i)
			if n.PagePath == pagePath {
				return &match{node: n, path: p}
			}
			if f := walk(n.Children, p); f != nil {
				return f
			}
		}
		return nil
	}
	f := walk(nodes, nil)
	return f, f != nil
}

func toWire(nodes []*node, prefix []int, depth int) []*wireNode {
	ret := make([]*wireNode, 0, len(nodes))
	for i, n := range nodes {
		p := append(append([]int{}, prefix...), i)
		w := &wireNode{
			Title:       n.Title,
			PagePath:    n.PagePath,
			Path:        p,
			HasChildren: len(n.Children) > 0,
			Children:    []*wireNode{},
		}
		if depth > 1 {
			w.Children = toWire(n.Children, p, depth-1)
		}
		ret = append(ret, w)
	}
	return ret
}
