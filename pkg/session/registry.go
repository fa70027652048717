package session

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/foomo/hbkbrowser/pkg/expand"
	"github.com/foomo/hbkbrowser/pkg/metrics"
	"github.com/foomo/hbkbrowser/pkg/navigation"
	"github.com/foomo/hbkbrowser/pkg/resolve"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	// ErrNotFound there is no such session
	ErrNotFound = errors.New("session not found")
	// ErrInvalidID session ids are uuids
	ErrInvalidID = errors.New("invalid session id")
)

const persistTimeout = 10 * time.Second

type (
	// Backend everything a session loads from the help backend
	Backend interface {
		expand.Loader
		navigation.ContentLoader
	}
	// Registry creates, restores and persists browsing sessions. The resolver and the
	// expansion engine are shared, trees and state are per session.
	Registry struct {
		l             *zap.Logger
		backend       Backend
		resolver      *resolve.Resolver
		engine        *expand.Engine
		history       *History
		defaultLocale string
		lock          sync.RWMutex
		sessions      map[string]*Session
	}
	Option func(*Registry)
	// Session one browsing session
	Session struct {
		*navigation.Orchestrator
		id           string
		l            *zap.Logger
		registry     *Registry
		lock         sync.Mutex
		sidebarWidth int
		lastLocale   string
		unsubscribe  func()
		stopOnce     sync.Once
		dirty        chan struct{}
		done         chan struct{}
		wg           sync.WaitGroup
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewRegistry(l *zap.Logger, backend Backend, resolver *resolve.Resolver, engine *expand.Engine, opts ...Option) *Registry {
	inst := &Registry{
		l:             l.Named("session"),
		backend:       backend,
		resolver:      resolver,
		engine:        engine,
		defaultLocale: "ru",
		sessions:      map[string]*Session{},
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// WithHistory persists sessions, without a history sessions live in memory only
func WithHistory(v *History) Option {
	return func(o *Registry) {
		o.history = v
	}
}

func WithDefaultLocale(v string) Option {
	return func(o *Registry) {
		o.defaultLocale = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Create starts a new session. Without a locale the last used one is taken.
func (r *Registry) Create(ctx context.Context, locale string) (*Session, error) {
	if locale == "" {
		locale = r.lastLocale(ctx)
	}
	locale, err := navigation.CanonicalLocale(locale)
	if err != nil {
		return nil, err
	}
	s := r.newSession(uuid.NewString(), navigation.NewStore(locale), DefaultSidebarWidth, "")
	r.add(s)
	s.persist()
	r.l.Info("created session", zap.String("session", s.id), zap.String("locale", locale))
	return s, nil
}

// Get returns a live session or restores it from its last snapshot
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	r.lock.RLock()
	s, ok := r.sessions[id]
	r.lock.RUnlock()
	if ok {
		return s, nil
	}
	if r.history == nil {
		return nil, errors.Wrapf(ErrNotFound, "%q", id)
	}
	data, err := r.history.Current(ctx, id)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrapf(ErrNotFound, "%q", id)
	} else if err != nil {
		return nil, errors.Wrapf(err, "could not read snapshot of %q", id)
	}
	snapshot := &Snapshot{}
	if err := json.Unmarshal(data, snapshot); err != nil {
		return nil, errors.Wrapf(err, "invalid snapshot of %q", id)
	}
	store := navigation.NewStore(snapshot.Locale)
	store.Restore(snapshot.State())

	r.lock.Lock()
	defer r.lock.Unlock()
	// restored concurrently
	if s, ok := r.sessions[id]; ok {
		return s, nil
	}
	s = r.newSession(id, store, ClampSidebarWidth(snapshot.SidebarWidth), snapshot.Locale)
	r.sessions[id] = s
	metrics.SessionsGauge.WithLabelValues().Inc()
	r.l.Info("restored session", zap.String("session", id), zap.String("url", store.State().URL))
	return s, nil
}

// Delete closes a session and removes its snapshots
func (r *Registry) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	r.lock.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.lock.Unlock()
	if ok {
		metrics.SessionsGauge.WithLabelValues().Dec()
		s.stop()
	}
	if r.history == nil {
		return nil
	}
	return r.history.Remove(ctx, id)
}

// Len number of live sessions
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.sessions)
}

// Close stops all sessions, pending snapshots are written
func (r *Registry) Close() error {
	r.lock.Lock()
	sessions := r.sessions
	r.sessions = map[string]*Session{}
	r.lock.Unlock()
	for _, s := range sessions {
		s.stop()
		metrics.SessionsGauge.WithLabelValues().Dec()
	}
	if r.history == nil {
		return nil
	}
	return r.history.Close()
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (r *Registry) add(s *Session) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.sessions[s.id] = s
	metrics.SessionsGauge.WithLabelValues().Inc()
}

func (r *Registry) newSession(id string, store *navigation.Store, sidebarWidth int, lastLocale string) *Session {
	l := r.l.With(zap.String("session", id))
	s := &Session{
		Orchestrator: navigation.New(l, store, r.backend, r.resolver, r.engine, navigation.NewTreeCache(l, r.backend)),
		id:           id,
		l:            l,
		registry:     r,
		sidebarWidth: sidebarWidth,
		lastLocale:   lastLocale,
		dirty:        make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	if r.history != nil {
		s.unsubscribe = store.Subscribe(func(navigation.State) {
			s.persist()
		})
		s.wg.Add(1)
		go s.persistLoop()
	}
	return s
}

func (r *Registry) lastLocale(ctx context.Context) string {
	if r.history == nil {
		return r.defaultLocale
	}
	locale, err := r.history.LastLocale(ctx)
	if err != nil || locale == "" {
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			r.l.Warn("could not read last locale", zap.Error(err))
		}
		return r.defaultLocale
	}
	return locale
}

// ------------------------------------------------------------------------------------------------
// ~ Session
// ------------------------------------------------------------------------------------------------

func (s *Session) ID() string {
	return s.id
}

func (s *Session) SidebarWidth() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.sidebarWidth
}

// SetSidebarWidth stores the clamped width and returns it
func (s *Session) SetSidebarWidth(w int) int {
	w = ClampSidebarWidth(w)
	s.lock.Lock()
	s.sidebarWidth = w
	s.lock.Unlock()
	s.persist()
	return w
}

// Snapshot the persistable state of the session
func (s *Session) Snapshot() *Snapshot {
	return newSnapshot(s.id, s.State(), s.SidebarWidth())
}

// persist schedules a snapshot, pending requests are collapsed
func (s *Session) persist() {
	if s.registry.history == nil {
		return
	}
	select {
	case s.dirty <- struct{}{}:
	default:
	}
}

func (s *Session) persistLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.dirty:
			s.write()
		case <-s.done:
			select {
			case <-s.dirty:
				s.write()
			default:
			}
			return
		}
	}
}

func (s *Session) write() {
	if s.State().Phase != navigation.PhaseIdle {
		// the navigation notifies again when it is done
		return
	}
	snapshot := s.Snapshot()
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	data, err := json.Marshal(snapshot)
	if err != nil {
		s.l.Error("could not marshal snapshot", zap.Error(err))
		metrics.SnapshotPersistFailedCounter.WithLabelValues().Inc()
		return
	}
	h := s.registry.history
	err = h.Add(ctx, s.id, data)
	if snapshot.Locale != s.lastLocale {
		if e := h.SetLastLocale(ctx, snapshot.Locale); e == nil {
			s.lastLocale = snapshot.Locale
		} else {
			err = multierr.Append(err, e)
		}
	}
	if err != nil {
		s.l.Warn("could not persist snapshot", zap.Error(err))
		metrics.SnapshotPersistFailedCounter.WithLabelValues().Inc()
	}
}

func (s *Session) stop() {
	s.stopOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.Orchestrator.Close()
		close(s.done)
	})
	s.wg.Wait()
}
