package resolve

import (
	"context"
	"strings"
	"sync"

	"github.com/foomo/hbkbrowser/client"
	"github.com/foomo/hbkbrowser/pkg/metrics"
	"github.com/foomo/hbkbrowser/pkg/utils"
	"github.com/foomo/hbkbrowser/responses"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNotFound the link does not point to a known page. Retrying will not change that.
var ErrNotFound = errors.New("link target not found")

type (
	// Backend resolves tokens to pages
	Backend interface {
		ResolveLink(ctx context.Context, link, locale string) (*responses.Resolve, error)
		ResolvePageLocation(ctx context.Context, token, locale string) (*responses.Resolve, error)
	}
	// BooksFunc lists the books known for a locale
	BooksFunc func(ctx context.Context, locale string) ([]string, error)
	// Target a resolved navigation target
	Target struct {
		SectionTitle string   `json:"sectionTitle"`
		SectionPath  string   `json:"sectionPath"`
		PageLocation string   `json:"pageLocation"`
		PagePath     string   `json:"pagePath"`
		Segments     []string `json:"segments"`
	}
	Resolver struct {
		l         *zap.Logger
		backend   Backend
		scheme    string
		books     BooksFunc
		group     singleflight.Group
		cache     map[cacheKey]cacheEntry
		cacheLock sync.RWMutex
		cacheSize int
	}
	Option   func(*Resolver)
	cacheKey struct {
		token  string
		locale string
	}
	cacheEntry struct {
		target *Target
		err    error
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, backend Backend, opts ...Option) *Resolver {
	inst := &Resolver{
		l:         l.Named("resolve"),
		backend:   backend,
		scheme:    DefaultScheme,
		cache:     map[cacheKey]cacheEntry{},
		cacheSize: 1024,
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

func WithScheme(v string) Option {
	return func(o *Resolver) {
		o.scheme = v
	}
}

// WithKnownBooks rejects scheme links into unknown books without asking the backend
func WithKnownBooks(v BooksFunc) Option {
	return func(o *Resolver) {
		o.books = v
	}
}

func WithCacheSize(v int) Option {
	return func(o *Resolver) {
		o.cacheSize = v
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Scheme of cross reference links
func (r *Resolver) Scheme() string {
	return r.scheme
}

// Resolve translates a scheme link or a page location into a navigation target.
// Resolutions of different tokens run independently, concurrent resolutions of
// the same token and locale share one backend call.
func (r *Resolver) Resolve(ctx context.Context, token, locale string) (*Target, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.Wrap(ErrNotFound, "empty token")
	}
	key := cacheKey{token: token, locale: locale}
	if e, ok := r.cached(key); ok {
		return e.target.clone(), e.err
	}
	v, err := utils.ShareCall(ctx, &r.group, key.token+"\x00"+key.locale, func() (interface{}, error) {
		return r.resolve(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Target).clone(), nil //nolint:forcetypeassert
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (r *Resolver) resolve(ctx context.Context, key cacheKey) (*Target, error) {
	var (
		res *responses.Resolve
		err error
	)
	if Classify(key.token, r.scheme) == LinkScheme {
		if known, ok := r.knownBook(ctx, key); ok && !known {
			r.l.Info("link into unknown book", zap.String("token", key.token), zap.String("locale", key.locale))
			err = errors.Wrapf(ErrNotFound, "unknown book %q", Book(key.token, r.scheme))
			r.store(key, nil, err)
			metrics.ResolveCounter.WithLabelValues("not_found").Inc()
			return nil, err
		}
		res, err = r.backend.ResolveLink(ctx, key.token, key.locale)
	} else {
		res, err = r.backend.ResolvePageLocation(ctx, key.token, key.locale)
	}

	switch {
	case err == nil:
		target := newTarget(res)
		r.store(key, target, nil)
		metrics.ResolveCounter.WithLabelValues("success").Inc()
		return target, nil
	case client.IsNotFound(err):
		err = errors.Wrapf(ErrNotFound, "%q", key.token)
		r.store(key, nil, err)
		metrics.ResolveCounter.WithLabelValues("not_found").Inc()
		return nil, err
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		r.l.Warn("failed to resolve", zap.String("token", key.token), zap.String("locale", key.locale), zap.Error(err))
		metrics.ResolveCounter.WithLabelValues("error").Inc()
		return nil, err
	}
}

// knownBook ok is false if there is no way to tell
func (r *Resolver) knownBook(ctx context.Context, key cacheKey) (known, ok bool) {
	if r.books == nil {
		return false, false
	}
	books, err := r.books(ctx, key.locale)
	if err != nil {
		r.l.Warn("could not list known books", zap.String("locale", key.locale), zap.Error(err))
		return false, false
	}
	book := Book(key.token, r.scheme)
	for _, b := range books {
		if b == book {
			return true, true
		}
	}
	return false, true
}

func (r *Resolver) cached(key cacheKey) (cacheEntry, bool) {
	r.cacheLock.RLock()
	defer r.cacheLock.RUnlock()
	e, ok := r.cache[key]
	return e, ok
}

func (r *Resolver) store(key cacheKey, target *Target, err error) {
	if r.cacheSize <= 0 {
		return
	}
	r.cacheLock.Lock()
	defer r.cacheLock.Unlock()
	if len(r.cache) >= r.cacheSize {
		r.cache = map[cacheKey]cacheEntry{}
	}
	r.cache[key] = cacheEntry{target: target.clone(), err: err}
}

func newTarget(res *responses.Resolve) *Target {
	segments := append([]string{}, res.PagePath...)
	pagePath := res.PageLocation
	if len(segments) > 0 {
		pagePath = segments[len(segments)-1]
	}
	return &Target{
		SectionTitle: res.SectionTitle,
		SectionPath:  res.SectionPath,
		PageLocation: res.PageLocation,
		PagePath:     pagePath,
		Segments:     segments,
	}
}

func (t *Target) clone() *Target {
	if t == nil {
		return nil
	}
	c := *t
	c.Segments = append([]string{}, t.Segments...)
	return &c
}
