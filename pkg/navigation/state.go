package navigation

import (
	"github.com/foomo/hbkbrowser/pkg/resolve"
	"github.com/foomo/hbkbrowser/toc"
)

// Phase of the navigation state machine
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseResolvingLink Phase = "resolvingLink"
	PhaseExpandingPath Phase = "expandingPath"
)

// NoticeKind kind of an inline error notice
type NoticeKind string

const (
	NoticeLinkNotFound  NoticeKind = "linkNotFound"
	NoticeResolveFailed NoticeKind = "resolveFailed"
	NoticeTreeFailed    NoticeKind = "treeFailed"
	NoticeContentFailed NoticeKind = "contentFailed"
	NoticeChildFailed   NoticeKind = "childFailed"
)

type (
	// Notice an inline error indicator, the rest of the state stays at its last good value
	Notice struct {
		Kind      NoticeKind `json:"kind"`
		Message   string     `json:"message"`
		Retryable bool       `json:"retryable"`
	}
	// Content of the selected page
	Content struct {
		PagePath string         `json:"pagePath"`
		HTML     string         `json:"html"`
		Links    []resolve.Link `json:"links"`
	}
	// State a snapshot of a navigation state
	State struct {
		Generation   uint64            `json:"generation"`
		Phase        Phase             `json:"phase"`
		Loading      bool              `json:"loading"`
		Locale       string            `json:"locale"`
		Location     Location          `json:"location"`
		URL          string            `json:"url"`
		SectionTitle string            `json:"sectionTitle"`
		Title        string            `json:"title"`
		Expanded     toc.IDSet         `json:"expanded"`
		NodeErrors   map[toc.ID]string `json:"nodeErrors,omitempty"`
		Notice       *Notice           `json:"notice,omitempty"`
		Content      *Content          `json:"content,omitempty"`
	}
	// Commit the result of a navigation, applied as a whole
	Commit struct {
		Location     Location
		SectionTitle string
		Title        string
		Expanded     toc.IDSet
		NodeErrors   map[toc.ID]error
	}
)

func (s State) clone() State {
	c := s
	c.Expanded = s.Expanded.Clone()
	if s.NodeErrors != nil {
		c.NodeErrors = make(map[toc.ID]string, len(s.NodeErrors))
		for id, msg := range s.NodeErrors {
			c.NodeErrors[id] = msg
		}
	}
	if s.Notice != nil {
		n := *s.Notice
		c.Notice = &n
	}
	return c
}
