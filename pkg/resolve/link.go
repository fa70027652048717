package resolve

import (
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

const (
	// DefaultScheme scheme of cross reference links between help books
	DefaultScheme = "v8help"
	// PageSuffix suffix of content pages
	PageSuffix = ".html"
)

// LinkKind classification of a link found in page content
type LinkKind string

const (
	LinkScheme   LinkKind = "scheme"   // cross reference, resolved by the backend
	LinkPage     LinkKind = "page"     // relative or absolute content page
	LinkExternal LinkKind = "external" // leaves the help
	LinkAnchor   LinkKind = "anchor"   // same page
	LinkOther    LinkKind = "other"
)

// Link an anchor found in page content
type Link struct {
	Href string   `json:"href"`
	Text string   `json:"text"`
	Kind LinkKind `json:"kind"`
}

// Classify a link target
func Classify(href, scheme string) LinkKind {
	lower := strings.ToLower(strings.TrimSpace(href))
	switch {
	case lower == "":
		return LinkOther
	case strings.HasPrefix(lower, "#"):
		return LinkAnchor
	case strings.HasPrefix(lower, strings.ToLower(scheme)+"://"):
		return LinkScheme
	case strings.Contains(lower, "://"), strings.HasPrefix(lower, "mailto:"), strings.HasPrefix(lower, "javascript:"):
		return LinkExternal
	case strings.HasSuffix(stripFragment(lower), PageSuffix):
		return LinkPage
	default:
		return LinkOther
	}
}

// Relative turns a page link found on the page currentPagePath into the page path it
// points to. Links with a leading separator are absolute. Links leaving the root or not
// pointing to a content page are not resolvable.
func Relative(href, currentPagePath string) (string, bool) {
	p := stripFragment(strings.TrimSpace(href))
	if !strings.HasSuffix(p, PageSuffix) || strings.Contains(p, "://") {
		return "", false
	}
	if strings.HasPrefix(p, "/") {
		return strings.TrimPrefix(path.Clean(p), "/"), true
	}
	joined := path.Clean(path.Join(path.Dir(currentPagePath), p))
	if joined == ".." || strings.HasPrefix(joined, "../") {
		return "", false
	}
	return joined, true
}

// Links extracts all anchors from an html fragment
func Links(fragment, scheme string) ([]Link, error) {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse content")
	}
	var links []Link
	goquery.NewDocumentFromNode(root).Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		links = append(links, Link{
			Href: href,
			Text: strings.TrimSpace(s.Text()),
			Kind: Classify(href, scheme),
		})
	})
	return links, nil
}

// Book returns the book a scheme link points into
func Book(link, scheme string) string {
	rest := link
	prefix := scheme + "://"
	if len(rest) >= len(prefix) && strings.EqualFold(rest[:len(prefix)], prefix) {
		rest = rest[len(prefix):]
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func stripFragment(p string) string {
	if i := strings.IndexAny(p, "#?"); i >= 0 {
		return p[:i]
	}
	return p
}
