package expand

import (
	"context"
	"fmt"
	"time"

	"github.com/foomo/hbkbrowser/pkg/metrics"
	"github.com/foomo/hbkbrowser/pkg/utils"
	"github.com/foomo/hbkbrowser/toc"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// childrenDepth lazy loads fetch exactly one level
const childrenDepth = 1

type (
	// Loader fetches a toc subtree
	Loader interface {
		TOC(ctx context.Context, sectionPath string, depth int, locale string) ([]*toc.PageNode, error)
	}
	// Engine walks toc paths and loads missing children on the way
	Engine struct {
		l      *zap.Logger
		loader Loader
		key    func(n *toc.PageNode) string
		group  singleflight.Group
	}
	Option func(*Engine)
	// Result of a path expansion
	Result struct {
		// Expanded ids of all matched nodes
		Expanded toc.IDSet
		// Matched ancestor chain down to the deepest matched node
		Matched []*toc.PageNode
		// Failed children loads by node id
		Failed map[toc.ID]error
		// Fetches number of children loads issued
		Fetches int
	}
)

// ------------------------------------------------------------------------------------------------
// ~ Constructor
// ------------------------------------------------------------------------------------------------

func New(l *zap.Logger, loader Loader, opts ...Option) *Engine {
	inst := &Engine{
		l:      l.Named("expand"),
		loader: loader,
		key: func(n *toc.PageNode) string {
			return n.PagePath
		},
	}
	for _, opt := range opts {
		opt(inst)
	}
	return inst
}

// ------------------------------------------------------------------------------------------------
// ~ Options
// ------------------------------------------------------------------------------------------------

// WithMatchTitle match segments against titles instead of page paths
func WithMatchTitle() Option {
	return func(o *Engine) {
		o.key = func(n *toc.PageNode) string {
			return n.Title
		}
	}
}

// ------------------------------------------------------------------------------------------------
// ~ Getter
// ------------------------------------------------------------------------------------------------

// Target the deepest matched node, nil if nothing matched
func (r *Result) Target() *toc.PageNode {
	if len(r.Matched) == 0 {
		return nil
	}
	return r.Matched[len(r.Matched)-1]
}

// Complete all segments were matched
func (r *Result) Complete(segments []string) bool {
	return len(r.Matched) == len(segments)
}

// ------------------------------------------------------------------------------------------------
// ~ Public methods
// ------------------------------------------------------------------------------------------------

// ExpandPath walks segments from roots and returns the ids that have to be expanded
// to reveal the target. Segment i+1 is only looked up after the children of segment i
// are loaded. A missing segment stops the walk, a failed children load stops the
// descent below that node. The returned set is never published partially, callers
// apply it as a whole.
func (e *Engine) ExpandPath(ctx context.Context, roots []*toc.PageNode, segments []string, locale string) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.ExpandDuration.WithLabelValues().Observe(time.Since(start).Seconds())
	}()

	res := &Result{
		Expanded: toc.NewIDSet(),
		Failed:   map[toc.ID]error{},
	}
	level := roots
	for i, segment := range segments {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := e.match(level, segment)
		if n == nil {
			e.l.Info("segment not found, stopping expansion",
				zap.String("segment", segment),
				zap.Int("index", i),
				zap.Int("matched", len(res.Matched)),
			)
			break
		}
		id := n.ID(i)
		res.Expanded.Add(id)
		res.Matched = append(res.Matched, n)

		if toc.NeedsLazyLoad(n, false) {
			res.Fetches++
			if err := e.LoadChildren(ctx, n, locale); err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				res.Failed[id] = err
				break
			}
		} else if err := n.LoadErr(); err != nil {
			res.Failed[id] = err
			break
		}
		level = n.ChildNodes()
	}
	return res, nil
}

// LoadChildren fetches the immediate children of n and attaches them. A failed
// fetch leaves n loaded without children and the error attached to n.
// Cancellation attaches nothing.
func (e *Engine) LoadChildren(ctx context.Context, n *toc.PageNode, locale string) error {
	key := fmt.Sprintf("%s|%s|%p", locale, n.PagePath, n)
	_, err := utils.ShareCall(ctx, &e.group, key, func() (interface{}, error) {
		if !toc.NeedsLazyLoad(n, false) {
			return nil, nil
		}
		children, err := e.loader.TOC(ctx, n.PagePath, childrenDepth, locale)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.l.Warn("failed to load children",
				zap.String("pagePath", n.PagePath),
				zap.String("locale", locale),
				zap.Error(err),
			)
			metrics.ChildLoadCounter.WithLabelValues("error").Inc()
			n.Attach(nil, err)
			return nil, err
		}
		metrics.ChildLoadCounter.WithLabelValues("success").Inc()
		n.Attach(children, nil)
		return nil, nil
	})
	return err
}

// ------------------------------------------------------------------------------------------------
// ~ Private methods
// ------------------------------------------------------------------------------------------------

func (e *Engine) match(level []*toc.PageNode, segment string) *toc.PageNode {
	for _, n := range level {
		if n != nil && e.key(n) == segment {
			return n
		}
	}
	return nil
}
