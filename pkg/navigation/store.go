package navigation

import (
	"sync"

	"github.com/foomo/hbkbrowser/toc"
)

// Store holds the navigation state of one session. All mutation goes through its
// named setters, navigation results are applied only when their generation is
// still the latest one.
type Store struct {
	lock              sync.RWMutex
	notifyLock        sync.Mutex
	state             State
	contentGeneration uint64
	subscribers       map[int]func(State)
	nextSubscriber    int
}

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewStore(locale string) *Store {
	return &Store{
		state: State{
			Phase:    PhaseIdle,
			Locale:   locale,
			Expanded: toc.NewIDSet(),
			URL:      Location{Locale: locale}.String(),
		},
		subscribers: map[int]func(State){},
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Getter
// ------------------------------------------------------------------------------------------------

// State returns a copy of the current state
func (s *Store) State() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.clone()
}

func (s *Store) Locale() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.Locale
}

func (s *Store) Generation() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.Generation
}

func (s *Store) IsNodeExpanded(id toc.ID) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.Expanded.Has(id)
}

// ExpandedNodes returns a copy of the expanded set
func (s *Store) ExpandedNodes() toc.IDSet {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state.Expanded.Clone()
}

// Subscribe registers fn to be called with a snapshot after every change. Calls are
// serialized and ordered. fn must not mutate the store.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.notifyLock.Lock()
	defer s.notifyLock.Unlock()
	id := s.nextSubscriber
	s.nextSubscriber++
	s.subscribers[id] = fn
	return func() {
		s.notifyLock.Lock()
		defer s.notifyLock.Unlock()
		delete(s.subscribers, id)
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Setter
// ------------------------------------------------------------------------------------------------

// Begin starts a new navigation and returns its generation. Every older navigation
// is superseded from now on.
func (s *Store) Begin(phase Phase) uint64 {
	var gen uint64
	s.mutate(func(st *State) bool {
		st.Generation++
		st.Phase = phase
		gen = st.Generation
		return true
	})
	return gen
}

// SetPhase moves navigation gen to phase
func (s *Store) SetPhase(gen uint64, phase Phase) error {
	return s.mutateGeneration(gen, func(st *State) error {
		st.Phase = phase
		return nil
	})
}

// Commit applies the result of navigation gen in one step. A result for another
// locale than the current one is rejected.
func (s *Store) Commit(gen uint64, c Commit) error {
	return s.mutateGeneration(gen, func(st *State) error {
		if c.Location.Locale != st.Locale {
			return ErrSuperseded
		}
		if st.Location.PagePath != c.Location.PagePath || st.Location.Locale != c.Location.Locale {
			// a content load for the previous page must not land on the new one
			s.contentGeneration++
			st.Loading = false
			st.Content = nil
		}
		st.Phase = PhaseIdle
		st.Location = c.Location
		st.URL = c.Location.String()
		st.SectionTitle = c.SectionTitle
		st.Title = c.Title
		st.Expanded = c.Expanded.Clone()
		st.NodeErrors = nil
		for id, err := range c.NodeErrors {
			if st.NodeErrors == nil {
				st.NodeErrors = map[toc.ID]string{}
			}
			st.NodeErrors[id] = err.Error()
		}
		st.Notice = nil
		return nil
	})
}

// ReplaceExpanded replaces the whole expanded set for navigation gen
func (s *Store) ReplaceExpanded(gen uint64, ids toc.IDSet) error {
	return s.mutateGeneration(gen, func(st *State) error {
		st.Expanded = ids.Clone()
		return nil
	})
}

// Fail ends navigation gen with a notice and leaves everything else untouched
func (s *Store) Fail(gen uint64, notice Notice) error {
	return s.mutateGeneration(gen, func(st *State) error {
		st.Phase = PhaseIdle
		st.Notice = &notice
		return nil
	})
}

// ToggleNode flips a single node and reports whether it is expanded now. It does
// not interfere with navigations.
func (s *Store) ToggleNode(id toc.ID) bool {
	var expanded bool
	s.mutate(func(st *State) bool {
		expanded = !st.Expanded.Has(id)
		if expanded {
			st.Expanded.Add(id)
		} else {
			delete(st.Expanded, id)
		}
		return true
	})
	return expanded
}

// SetNotice replaces the inline notice, nil clears it
func (s *Store) SetNotice(notice *Notice) {
	s.mutate(func(st *State) bool {
		if notice == nil && st.Notice == nil {
			return false
		}
		if notice != nil {
			n := *notice
			notice = &n
		}
		st.Notice = notice
		return true
	})
}

// SetNodeError attaches a notice to a single node, nil removes it
func (s *Store) SetNodeError(id toc.ID, err error) {
	s.mutate(func(st *State) bool {
		if err == nil {
			if _, ok := st.NodeErrors[id]; !ok {
				return false
			}
			delete(st.NodeErrors, id)
			return true
		}
		if st.NodeErrors == nil {
			st.NodeErrors = map[toc.ID]string{}
		}
		st.NodeErrors[id] = err.Error()
		return true
	})
}

// SetLocale switches the locale. Selection, expanded set and content are cleared
// and every running navigation or content load is superseded.
func (s *Store) SetLocale(locale string) uint64 {
	var gen uint64
	s.mutate(func(st *State) bool {
		s.contentGeneration++
		gen = st.Generation + 1
		*st = State{
			Generation: gen,
			Phase:      PhaseIdle,
			Locale:     locale,
			Location:   Location{Locale: locale},
			URL:        Location{Locale: locale}.String(),
			Expanded:   toc.NewIDSet(),
		}
		return true
	})
	return gen
}

// BeginContent starts a content load for the selected page and returns its
// generation together with the location to load
func (s *Store) BeginContent() (uint64, Location, error) {
	var (
		gen uint64
		loc Location
		err error
	)
	s.mutate(func(st *State) bool {
		if st.Location.PagePath == "" {
			err = ErrNoPage
			return false
		}
		s.contentGeneration++
		gen = s.contentGeneration
		loc = st.Location
		st.Loading = true
		return true
	})
	return gen, loc, err
}

// SetContent applies the result of content load gen. With a notice the last
// good content is kept.
func (s *Store) SetContent(gen uint64, content *Content, notice *Notice) error {
	var err error
	s.mutate(func(st *State) bool {
		if gen != s.contentGeneration || (content != nil && content.PagePath != st.Location.PagePath) {
			err = ErrSuperseded
			return false
		}
		st.Loading = false
		if notice != nil {
			st.Notice = notice
			return true
		}
		if content != nil {
			st.Content = content
			if st.Notice != nil && st.Notice.Kind == NoticeContentFailed {
				st.Notice = nil
			}
		}
		return true
	})
	return err
}

// Restore replaces the state with a persisted one
func (s *Store) Restore(st State) {
	s.mutate(func(cur *State) bool {
		gen := cur.Generation + 1
		*cur = st.clone()
		cur.Generation = gen
		cur.Phase = PhaseIdle
		cur.Loading = false
		cur.URL = cur.Location.String()
		if cur.Expanded == nil {
			cur.Expanded = toc.NewIDSet()
		}
		return true
	})
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (s *Store) mutateGeneration(gen uint64, fn func(st *State) error) error {
	var err error
	s.mutate(func(st *State) bool {
		if gen != st.Generation {
			err = ErrSuperseded
			return false
		}
		err = fn(st)
		return err == nil
	})
	return err
}

// mutate applies fn under the lock and notifies subscribers if fn reports a change
func (s *Store) mutate(fn func(st *State) bool) {
	s.lock.Lock()
	if !fn(&s.state) {
		s.lock.Unlock()
		return
	}
	snapshot := s.state.clone()
	s.notifyLock.Lock()
	s.lock.Unlock()
	defer s.notifyLock.Unlock()
	for _, sub := range s.subscribers {
		sub(snapshot)
	}
}
