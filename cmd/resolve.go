package cmd

import (
	"github.com/foomo/hbkbrowser/pkg/expand"
	"github.com/foomo/hbkbrowser/pkg/navigation"
	"github.com/foomo/hbkbrowser/pkg/resolve"
	"github.com/foomo/keel/log"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type resolution struct {
	Token    string          `json:"token"`
	Target   *resolve.Target `json:"target,omitempty"`
	URL      string          `json:"url,omitempty"`
	Expanded []string        `json:"expanded,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func NewResolveCommand() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:               "resolve <backend-url> <link>...",
		Short:             "Resolve links and page locations and show the nodes to expand",
		Args:              cobra.MinimumNArgs(2),
		ValidArgsFunction: backendArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := log.Logger()
			backend, err := newBackend(l, v, args[0])
			if err != nil {
				return err
			}
			locale, err := navigation.CanonicalLocale(localeFlag(v))
			if err != nil {
				return err
			}
			var (
				resolver = resolve.New(l, backend, resolve.WithScheme(schemeFlag(v)), resolve.WithKnownBooks(resolve.TOCBooks(backend)))
				engine   = expand.New(l, backend)
				trees    = navigation.NewTreeCache(l, backend)
				tokens   = args[1:]
				results  = make([]*resolution, len(tokens))
			)

			g, ctx := errgroup.WithContext(cmd.Context())
			for i, token := range tokens {
				results[i] = &resolution{Token: token}
				res := results[i]
				g.Go(func() error {
					target, err := resolver.Resolve(ctx, token, locale)
					if err != nil {
						res.Error = err.Error()
						return nil
					}
					res.Target = target
					res.URL = navigation.Location{Locale: locale, SectionPath: target.SectionPath, PagePath: target.PagePath}.String()
					roots, err := trees.Roots(ctx, locale, target.SectionPath)
					if err != nil {
						res.Error = err.Error()
						return nil
					}
					expanded, err := engine.ExpandPath(ctx, roots, target.Segments, locale)
					if err != nil {
						return err
					}
					res.Expanded = expanded.Expanded.Sorted()
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			for _, res := range results {
				if res.Error != "" {
					l.Info("could not resolve", zap.String("token", res.Token), zap.String("error", res.Error))
				}
				if err := enc.Encode(res); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	addLocaleFlag(flags, v)
	addSchemeFlag(flags, v)
	addBackendTimeoutFlag(flags, v)

	return cmd
}
