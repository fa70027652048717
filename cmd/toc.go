package cmd

import (
	"fmt"
	"strings"

	"github.com/foomo/hbkbrowser/pkg/expand"
	"github.com/foomo/hbkbrowser/pkg/navigation"
	"github.com/foomo/hbkbrowser/toc"
	"github.com/foomo/keel/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func NewTOCCommand() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:               "toc <backend-url> [section-path]",
		Short:             "Print the table of contents of a section",
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: backendArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := log.Logger()
			backend, err := newBackend(l, v, args[0])
			if err != nil {
				return err
			}
			var sectionPath string
			if len(args) > 1 {
				sectionPath = args[1]
			}
			locale, err := navigation.CanonicalLocale(localeFlag(v))
			if err != nil {
				return err
			}

			roots, err := backend.TOC(cmd.Context(), sectionPath, depthFlag(v), locale)
			if err != nil {
				return err
			}

			if n := prefetchFlag(v); n > 0 {
				var pending []*toc.PageNode
				toc.Walk(roots, func(node *toc.PageNode, depth int) bool {
					if toc.NeedsLazyLoad(node, false) {
						pending = append(pending, node)
					}
					return true
				})
				engine := expand.New(l, backend)
				g, ctx := errgroup.WithContext(cmd.Context())
				g.SetLimit(n)
				for _, node := range pending {
					g.Go(func() error {
						// the failure stays on the node, siblings keep loading
						if err := engine.LoadChildren(ctx, node, locale); err != nil {
							l.Warn("prefetch failed", zap.String("pagePath", node.PagePath), zap.Error(err))
						}
						return nil
					})
				}
				_ = g.Wait()
			}

			var b strings.Builder
			for _, n := range roots {
				n.PrintNode(&b, 0)
			}
			_, _ = fmt.Fprint(cmd.OutOrStdout(), b.String())
			l.Debug("printed toc", zap.Int("nodes", toc.Count(roots)))
			return nil
		},
	}

	flags := cmd.Flags()
	addLocaleFlag(flags, v)
	addDepthFlag(flags, v)
	addPrefetchFlag(flags, v)
	addBackendTimeoutFlag(flags, v)

	return cmd
}
