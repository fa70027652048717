package toc

import (
	"sort"
	"strconv"
	"strings"
)

// ID identifies a node in the UI. Page paths repeat at different depths,
// so the depth is always part of it.
type ID string

// NodeID builds the identifier of a page at the given depth
func NodeID(pagePath string, depth int) ID {
	return ID(pagePath + "-" + strconv.Itoa(depth))
}

// Split returns page path and depth of an id
func (id ID) Split() (pagePath string, depth int, ok bool) {
	i := strings.LastIndex(string(id), "-")
	if i < 0 {
		return "", 0, false
	}
	depth, err := strconv.Atoi(string(id)[i+1:])
	if err != nil || depth < 0 {
		return "", 0, false
	}
	return string(id)[:i], depth, true
}

// IDSet a set of node ids
type IDSet map[ID]struct{}

// NewIDSet constructor
func NewIDSet(ids ...ID) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(id ID) {
	s[id] = struct{}{}
}

func (s IDSet) Has(id ID) bool {
	_, ok := s[id]
	return ok
}

// Clone returns an independent copy
func (s IDSet) Clone() IDSet {
	c := make(IDSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Sorted returns the ids in a stable order
func (s IDSet) Sorted() []string {
	ret := make([]string, 0, len(s))
	for id := range s {
		ret = append(ret, string(id))
	}
	sort.Strings(ret)
	return ret
}

// MarshalJSON renders the set as a sorted list
func (s IDSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON reads a list of ids
func (s *IDSet) UnmarshalJSON(data []byte) error {
	var ids []ID
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewIDSet(ids...)
	return nil
}
