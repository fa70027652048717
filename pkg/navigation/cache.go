package navigation

import (
	"context"
	"sync"

	"github.com/foomo/hbkbrowser/pkg/expand"
	"github.com/foomo/hbkbrowser/pkg/utils"
	"github.com/foomo/hbkbrowser/toc"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// sectionDepth section trees are loaded one level deep, the rest is loaded lazily
const sectionDepth = 1

type (
	// TreeCache holds the loaded section trees of one session. The nodes are
	// mutated in place by lazy loads and dropped with their locale.
	TreeCache struct {
		l       *zap.Logger
		loader  expand.Loader
		group   singleflight.Group
		lock    sync.RWMutex
		entries map[treeKey][]*toc.PageNode
	}
	treeKey struct {
		locale      string
		sectionPath string
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func NewTreeCache(l *zap.Logger, loader expand.Loader) *TreeCache {
	return &TreeCache{
		l:       l.Named("trees"),
		loader:  loader,
		entries: map[treeKey][]*toc.PageNode{},
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// Roots returns the roots of a section, an empty section path returns the books.
// Failed loads are not cached.
func (c *TreeCache) Roots(ctx context.Context, locale, sectionPath string) ([]*toc.PageNode, error) {
	key := treeKey{locale: locale, sectionPath: sectionPath}
	if roots, ok := c.Peek(locale, sectionPath); ok {
		return roots, nil
	}
	v, err := utils.ShareCall(ctx, &c.group, locale+"\x00"+sectionPath, func() (interface{}, error) {
		if roots, ok := c.Peek(locale, sectionPath); ok {
			return roots, nil
		}
		roots, err := c.loader.TOC(ctx, sectionPath, sectionDepth, locale)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.l.Warn("failed to load section", zap.String("locale", locale), zap.String("sectionPath", sectionPath), zap.Error(err))
			return nil, err
		}
		c.lock.Lock()
		c.entries[key] = roots
		c.lock.Unlock()
		return roots, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]*toc.PageNode), nil //nolint:forcetypeassert
}

// Peek returns the roots of a section if they are loaded
func (c *TreeCache) Peek(locale, sectionPath string) ([]*toc.PageNode, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	roots, ok := c.entries[treeKey{locale: locale, sectionPath: sectionPath}]
	return roots, ok
}

// Find looks up a node by id in all loaded trees of a locale, the given section first
func (c *TreeCache) Find(locale, sectionPath string, id toc.ID) (*toc.PageNode, bool) {
	if roots, ok := c.Peek(locale, sectionPath); ok {
		if n, _, ok := toc.FindByID(roots, id); ok {
			return n, true
		}
	}
	c.lock.RLock()
	defer c.lock.RUnlock()
	for key, roots := range c.entries {
		if key.locale != locale || key.sectionPath == sectionPath {
			continue
		}
		if n, _, ok := toc.FindByID(roots, id); ok {
			return n, true
		}
	}
	return nil, false
}

// Invalidate drops all trees of a locale
func (c *TreeCache) Invalidate(locale string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	for key := range c.entries {
		if key.locale == locale {
			delete(c.entries, key)
		}
	}
}
