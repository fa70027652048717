package session

import (
	"time"

	"github.com/foomo/hbkbrowser/pkg/navigation"
	"github.com/foomo/hbkbrowser/toc"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	DefaultSidebarWidth = 300
	MinSidebarWidth     = 160
	MaxSidebarWidth     = 800
)

// Snapshot the persisted part of a session
type Snapshot struct {
	ID           string              `json:"id"`
	Locale       string              `json:"locale"`
	Location     navigation.Location `json:"location"`
	SectionTitle string              `json:"sectionTitle,omitempty"`
	Title        string              `json:"title,omitempty"`
	Expanded     toc.IDSet           `json:"expanded"`
	SidebarWidth int                 `json:"sidebarWidth"`
	Updated      time.Time           `json:"updated"`
}

func newSnapshot(id string, st navigation.State, sidebarWidth int) *Snapshot {
	return &Snapshot{
		ID:           id,
		Locale:       st.Locale,
		Location:     st.Location,
		SectionTitle: st.SectionTitle,
		Title:        st.Title,
		Expanded:     st.Expanded.Clone(),
		SidebarWidth: sidebarWidth,
		Updated:      time.Now(),
	}
}

// State the navigation state to restore
func (s *Snapshot) State() navigation.State {
	return navigation.State{
		Locale:       s.Locale,
		Location:     s.Location,
		SectionTitle: s.SectionTitle,
		Title:        s.Title,
		Expanded:     s.Expanded.Clone(),
	}
}

// ClampSidebarWidth keeps a sidebar width within its bounds, 0 is the default width
func ClampSidebarWidth(w int) int {
	switch {
	case w == 0:
		return DefaultSidebarWidth
	case w < MinSidebarWidth:
		return MinSidebarWidth
	case w > MaxSidebarWidth:
		return MaxSidebarWidth
	default:
		return w
	}
}
