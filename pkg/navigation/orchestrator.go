package navigation

import (
	"context"
	"sync"

	"github.com/foomo/hbkbrowser/client"
	"github.com/foomo/hbkbrowser/pkg/expand"
	"github.com/foomo/hbkbrowser/pkg/metrics"
	"github.com/foomo/hbkbrowser/pkg/resolve"
	"github.com/foomo/hbkbrowser/toc"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

const (
	originLink     = "link"
	originLocation = "location"
)

type (
	// ContentLoader fetches page content
	ContentLoader interface {
		Content(ctx context.Context, pagePath, locale string) (string, error)
	}
	// Orchestrator sequences resolution, tree expansion and content loading for one
	// session. A newer navigation cancels and supersedes every older one.
	Orchestrator struct {
		l        *zap.Logger
		store    *Store
		content  ContentLoader
		resolver *resolve.Resolver
		engine   *expand.Engine
		trees    *TreeCache

		lock          sync.Mutex
		cancel        context.CancelFunc
		cancelContent context.CancelFunc
		last          func(ctx context.Context) error
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, store *Store, content ContentLoader, resolver *resolve.Resolver, engine *expand.Engine, trees *TreeCache) *Orchestrator {
	return &Orchestrator{
		l:        l.Named("navigation"),
		store:    store,
		content:  content,
		resolver: resolver,
		engine:   engine,
		trees:    trees,
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Getter
// ------------------------------------------------------------------------------------------------

func (o *Orchestrator) State() State {
	return o.store.State()
}

func (o *Orchestrator) Location() Location {
	return o.store.State().Location
}

func (o *Orchestrator) IsNodeExpanded(id toc.ID) bool {
	return o.store.IsNodeExpanded(id)
}

func (o *Orchestrator) ExpandedNodes() toc.IDSet {
	return o.store.ExpandedNodes()
}

// Store the underlying store
func (o *Orchestrator) Store() *Store {
	return o.store
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// FollowLink navigates to the target of a link found in the current page. Scheme
// links and page locations are resolved by the backend, relative page links against
// the current page first.
func (o *Orchestrator) FollowLink(ctx context.Context, href string) (err error) {
	defer func() {
		metrics.NavigationCounter.WithLabelValues(originLink, statusLabel(err)).Inc()
	}()
	st := o.store.State()
	token := href
	switch resolve.Classify(href, o.resolver.Scheme()) {
	case resolve.LinkExternal, resolve.LinkAnchor:
		return errors.Wrapf(ErrNotNavigable, "%q", href)
	case resolve.LinkPage:
		rel, ok := resolve.Relative(href, st.Location.PagePath)
		if !ok {
			return errors.Wrapf(ErrNotNavigable, "%q", href)
		}
		token = rel
	}

	ctx, gen, locale, done := o.begin(ctx, PhaseResolvingLink, func(ctx context.Context) error {
		return o.FollowLink(ctx, href)
	})
	defer done()

	target, err := o.resolver.Resolve(ctx, token, locale)
	if err != nil {
		switch {
		case IsCancellation(err):
			return o.abort(gen, err)
		case errors.Is(err, resolve.ErrNotFound):
			o.l.Info("link target not found", zap.String("href", href), zap.String("token", token))
			return o.fail(gen, err, Notice{Kind: NoticeLinkNotFound, Message: "link target not found"})
		default:
			return o.fail(gen, err, Notice{Kind: NoticeResolveFailed, Message: err.Error(), Retryable: true})
		}
	}
	if err := o.store.SetPhase(gen, PhaseExpandingPath); err != nil {
		return err
	}
	loc := Location{Locale: locale, SectionPath: target.SectionPath, PagePath: target.PagePath}
	return o.expand(ctx, gen, loc, target.SectionTitle, target.Segments)
}

// Navigate selects a location without asking the resolver, as done for history
// navigation and typed urls. The tree path is derived from the page path.
func (o *Orchestrator) Navigate(ctx context.Context, loc Location) (err error) {
	defer func() {
		metrics.NavigationCounter.WithLabelValues(originLocation, statusLabel(err)).Inc()
	}()
	if loc.Locale == "" {
		loc.Locale = o.store.Locale()
	}
	locale, err := CanonicalLocale(loc.Locale)
	if err != nil {
		return err
	}
	loc.Locale = locale
	if locale != o.store.Locale() {
		if err := o.SetLocale(locale); err != nil {
			return err
		}
	}

	ctx, gen, current, done := o.begin(ctx, PhaseExpandingPath, func(ctx context.Context) error {
		return o.Navigate(ctx, loc)
	})
	defer done()
	if current != loc.Locale {
		return o.abort(gen, ErrSuperseded)
	}

	if loc.SectionPath == "" && loc.PagePath == "" {
		return o.store.Commit(gen, Commit{Location: loc, Expanded: toc.NewIDSet()})
	}
	return o.expand(ctx, gen, loc, o.sectionTitle(ctx, loc), loc.Segments())
}

// Toggle flips a single node and lazily loads its children when it is opened. A
// failed load is attached to that node only. Navigations are not affected.
func (o *Orchestrator) Toggle(ctx context.Context, id toc.ID) (bool, error) {
	expanded := o.store.ToggleNode(id)
	if !expanded {
		return false, nil
	}
	st := o.store.State()
	n, ok := o.trees.Find(st.Locale, st.Location.SectionPath, id)
	if !ok {
		return true, nil
	}
	if n.LoadErr() != nil {
		n.Reset()
	}
	if !toc.NeedsLazyLoad(n, false) {
		return true, nil
	}
	err := o.engine.LoadChildren(ctx, n, st.Locale)
	if IsCancellation(err) {
		return true, err
	}
	if o.store.State().Locale == st.Locale {
		o.store.SetNodeError(id, err)
	}
	return true, err
}

// SetLocale switches to another locale. Every running navigation is superseded, the
// selection and the expanded nodes are cleared.
func (o *Orchestrator) SetLocale(locale string) error {
	canonical, err := CanonicalLocale(locale)
	if err != nil {
		return err
	}
	o.lock.Lock()
	defer o.lock.Unlock()
	old := o.store.State().Locale
	if canonical == old {
		return nil
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	if o.cancelContent != nil {
		o.cancelContent()
		o.cancelContent = nil
	}
	o.last = nil
	o.store.SetLocale(canonical)
	o.trees.Invalidate(old)
	o.l.Info("switched locale", zap.String("from", old), zap.String("to", canonical))
	return nil
}

// LoadContent fetches the content of the selected page. The result of an outdated
// load is dropped. A failure keeps the last good content and sets a notice.
func (o *Orchestrator) LoadContent(ctx context.Context) (*Content, error) {
	o.lock.Lock()
	if o.cancelContent != nil {
		o.cancelContent()
	}
	ctx, cancel := context.WithCancel(ctx)
	o.cancelContent = cancel
	o.lock.Unlock()
	defer cancel()

	gen, loc, err := o.store.BeginContent()
	if err != nil {
		return nil, err
	}
	html, err := o.content.Content(ctx, loc.PagePath, loc.Locale)
	if err != nil {
		if IsCancellation(err) {
			if e := o.store.SetContent(gen, nil, nil); e != nil {
				return nil, e
			}
			return nil, err
		}
		notice := Notice{Kind: NoticeContentFailed, Message: err.Error(), Retryable: !client.IsNotFound(err)}
		o.l.Warn("failed to load content", zap.String("pagePath", loc.PagePath), zap.Error(err))
		if e := o.store.SetContent(gen, nil, &notice); e != nil {
			return nil, e
		}
		return nil, err
	}
	links, err := resolve.Links(html, o.resolver.Scheme())
	if err != nil {
		o.l.Warn("failed to extract links", zap.String("pagePath", loc.PagePath), zap.Error(err))
	}
	content := &Content{PagePath: loc.PagePath, HTML: html, Links: links}
	if err := o.store.SetContent(gen, content, nil); err != nil {
		return nil, err
	}
	return content, nil
}

// Retry runs the operation behind the current notice again
func (o *Orchestrator) Retry(ctx context.Context) error {
	notice := o.store.State().Notice
	if notice == nil {
		return nil
	}
	if !notice.Retryable {
		return errors.Errorf("%s is not retryable", notice.Kind)
	}
	switch notice.Kind {
	case NoticeContentFailed:
		_, err := o.LoadContent(ctx)
		return err
	default:
		o.lock.Lock()
		last := o.last
		o.lock.Unlock()
		if last == nil {
			o.store.SetNotice(nil)
			return nil
		}
		return last(ctx)
	}
}

// Close cancels everything in flight
func (o *Orchestrator) Close() {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	if o.cancelContent != nil {
		o.cancelContent()
		o.cancelContent = nil
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

// begin supersedes the running navigation and starts a new one in the locale that
// is current at that moment
func (o *Orchestrator) begin(ctx context.Context, phase Phase, retry func(ctx context.Context) error) (context.Context, uint64, string, func()) {
	o.lock.Lock()
	defer o.lock.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	o.cancel = cancel
	o.last = retry
	gen := o.store.Begin(phase)
	return ctx, gen, o.store.Locale(), cancel
}

// expand loads the section tree, expands it along segments and commits the result
func (o *Orchestrator) expand(ctx context.Context, gen uint64, loc Location, sectionTitle string, segments []string) error {
	roots, err := o.trees.Roots(ctx, loc.Locale, loc.SectionPath)
	if err != nil {
		if IsCancellation(err) {
			return o.abort(gen, err)
		}
		return o.fail(gen, err, Notice{Kind: NoticeTreeFailed, Message: err.Error(), Retryable: !client.IsNotFound(err)})
	}
	res, err := o.engine.ExpandPath(ctx, roots, segments, loc.Locale)
	if err != nil {
		return o.abort(gen, err)
	}
	if !res.Complete(segments) {
		o.l.Info("page not fully revealed",
			zap.String("pagePath", loc.PagePath),
			zap.Int("segments", len(segments)),
			zap.Int("matched", len(res.Matched)),
		)
	}
	return o.store.Commit(gen, Commit{
		Location:     loc,
		SectionTitle: sectionTitle,
		Title:        title(roots, res, loc, sectionTitle),
		Expanded:     res.Expanded,
		NodeErrors:   res.Failed,
	})
}

// abort ends a cancelled navigation, if it was not superseded it is set back to idle
func (o *Orchestrator) abort(gen uint64, err error) error {
	if e := o.store.SetPhase(gen, PhaseIdle); e != nil {
		return e
	}
	return err
}

func (o *Orchestrator) fail(gen uint64, err error, notice Notice) error {
	if e := o.store.Fail(gen, notice); e != nil {
		return e
	}
	return err
}

// sectionTitle looks up the title of a section among the books, best effort
func (o *Orchestrator) sectionTitle(ctx context.Context, loc Location) string {
	if loc.SectionPath == "" {
		return ""
	}
	books, err := o.trees.Roots(ctx, loc.Locale, "")
	if err != nil {
		if !IsCancellation(err) {
			o.l.Debug("could not load books", zap.String("locale", loc.Locale), zap.Error(err))
		}
		return ""
	}
	for _, b := range books {
		if b.PagePath == loc.SectionPath {
			return b.Title
		}
	}
	return ""
}

func title(roots []*toc.PageNode, res *expand.Result, loc Location, sectionTitle string) string {
	if n := res.Target(); n != nil && n.PagePath == loc.PagePath {
		return n.Title
	}
	if n, _, ok := toc.FindByPagePath(roots, loc.PagePath); ok {
		return n.Title
	}
	return sectionTitle
}

// CanonicalLocale normalizes a language tag, "RU" becomes "ru"
func CanonicalLocale(locale string) (string, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidLocale, "%q", locale)
	}
	return tag.String(), nil
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsCancellation(err):
		return "superseded"
	default:
		return "error"
	}
}
