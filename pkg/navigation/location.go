package navigation

import (
	"net/url"
	"strings"

	"github.com/foomo/hbkbrowser/pkg/utils"
	"github.com/foomo/hbkbrowser/toc"
	"github.com/pkg/errors"
)

// Location the addressable part of a navigation state, it is rendered as
// /{locale}/{section}/{page path}. The section is escaped into a single url segment.
type Location struct {
	Locale      string `json:"locale"`
	SectionPath string `json:"sectionPath"`
	PagePath    string `json:"pagePath"`
}

// String renders the url path of the location
func (l Location) String() string {
	if l.Locale == "" {
		return "/"
	}
	var b strings.Builder
	b.WriteString("/" + url.PathEscape(l.Locale))
	if l.SectionPath == "" && l.PagePath == "" {
		return b.String()
	}
	b.WriteString("/" + url.PathEscape(l.SectionPath))
	if l.PagePath != "" {
		b.WriteString("/" + utils.EscapePath(l.PagePath))
	}
	return b.String()
}

// IsZero nothing selected
func (l Location) IsZero() bool {
	return l == Location{}
}

// Segments derives the tree path to the page from the page path itself: every
// prefix of the page path below the section is one segment.
func (l Location) Segments() []string {
	if l.PagePath == "" {
		return nil
	}
	var (
		parts    = strings.Split(strings.Trim(l.PagePath, toc.PathSeparator), toc.PathSeparator)
		section  = strings.Trim(l.SectionPath, toc.PathSeparator) + toc.PathSeparator
		segments = make([]string, 0, len(parts))
	)
	for i := range parts {
		prefix := strings.Join(parts[:i+1], toc.PathSeparator)
		if l.SectionPath != "" && strings.HasPrefix(section, prefix+toc.PathSeparator) {
			continue
		}
		segments = append(segments, prefix)
	}
	return segments
}

// ParseLocation reads a location from a url or url path
func ParseLocation(raw string) (Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, errors.Wrap(err, "invalid location")
	}
	escaped := strings.Trim(u.EscapedPath(), "/")
	if escaped == "" {
		return Location{}, errors.New("location without locale")
	}
	parts := strings.Split(escaped, "/")
	unescaped := make([]string, len(parts))
	for i, p := range parts {
		if unescaped[i], err = url.PathUnescape(p); err != nil {
			return Location{}, errors.Wrapf(err, "invalid location segment %q", p)
		}
	}
	l := Location{Locale: unescaped[0]}
	if len(unescaped) > 1 {
		l.SectionPath = unescaped[1]
	}
	if len(unescaped) > 2 {
		l.PagePath = strings.Join(unescaped[2:], toc.PathSeparator)
	}
	return l, nil
}
