package cmd

import (
	"context"
	"strings"

	"github.com/foomo/hbkbrowser/pkg/expand"
	"github.com/foomo/hbkbrowser/pkg/handler"
	"github.com/foomo/hbkbrowser/pkg/resolve"
	"github.com/foomo/hbkbrowser/pkg/session"
	"github.com/foomo/keel"
	"github.com/foomo/keel/healthz"
	"github.com/foomo/keel/net/http/middleware"
	"github.com/foomo/keel/service"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func NewServeCommand() *cobra.Command {
	v := newViper()
	service.DefaultHTTPPProfAddr = ":6060"

	cmd := &cobra.Command{
		Use:               "serve <backend-url>",
		Short:             "Start the browser gateway",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: backendArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svr := keel.NewServer(
				keel.WithHTTPPrometheusService(servicePrometheusEnabledFlag(v)),
				keel.WithHTTPHealthzService(serviceHealthzEnabledFlag(v)),
				keel.WithPrometheusMeter(servicePrometheusEnabledFlag(v)),
				keel.WithGracefulPeriod(gracefulPeriodFlag(v)),
				keel.WithOTLPGRPCTracer(otelEnabledFlag(v)),
				keel.WithHTTPPProfService(servicePProfEnabledFlag(v)),
			)

			l := svr.Logger()

			backend, err := newBackend(l, v, args[0])
			if err != nil {
				return err
			}

			resolverOpts := []resolve.Option{
				resolve.WithScheme(schemeFlag(v)),
				resolve.WithCacheSize(resolveCacheSizeFlag(v)),
			}
			if knownBooksFlag(v) {
				resolverOpts = append(resolverOpts, resolve.WithKnownBooks(resolve.TOCBooks(backend)))
			}
			var engineOpts []expand.Option
			if matchTitleFlag(v) {
				engineOpts = append(engineOpts, expand.WithMatchTitle())
			}

			registryOpts := []session.Option{
				session.WithDefaultLocale(localeFlag(v)),
			}
			storage, err := createStorage(cmd.Context(), v, l)
			if err != nil {
				return errors.Wrap(err, "failed to create storage")
			}
			if storage != nil {
				registryOpts = append(registryOpts, session.WithHistory(
					session.NewHistory(l.Named("inst.history"), storage, session.HistoryWithLimit(historyLimitFlag(v))),
				))
			}

			registry := session.NewRegistry(l.Named("inst.registry"),
				backend,
				resolve.New(l.Named("inst.resolve"), backend, resolverOpts...),
				expand.New(l.Named("inst.expand"), backend, engineOpts...),
				registryOpts...,
			)

			isReachableHealthzerFn := healthz.NewHealthzerFn(func(ctx context.Context) error {
				if _, err := backend.AppInfo(ctx); err != nil {
					return errors.Wrap(err, "help backend not reachable")
				}
				return nil
			})
			svr.AddStartupHealthzers(isReachableHealthzerFn)
			svr.AddReadinessHealthzers(isReachableHealthzerFn)

			svr.AddClosers(func(ctx context.Context) error {
				return registry.Close()
			})

			svr.AddServices(
				service.NewHTTP(l.Named("svc.http"), "http", addressFlag(v),
					handler.NewHTTP(l.Named("inst.handler"), registry, backend,
						handler.WithBasePath(basePathFlag(v)),
						handler.WithAllowedOrigins(allowedOriginsFlag(v)...),
					),
					middleware.Telemetry(),
					middleware.Logger(),
					middleware.GZip(middleware.GZipWithLevel(gzipLevelFlag(v))),
					middleware.Recover(),
				),
			)

			svr.Run()
			return nil
		},
	}

	flags := cmd.Flags()
	addAddressFlag(flags, v)
	addBasePathFlag(flags, v)
	addAllowedOriginsFlag(flags, v)
	addBackendTimeoutFlag(flags, v)
	addLocaleFlag(flags, v)
	addSchemeFlag(flags, v)
	addResolveCacheSizeFlag(flags, v)
	addKnownBooksFlag(flags, v)
	addMatchTitleFlag(flags, v)
	addHistoryDirFlag(flags, v)
	addHistoryLimitFlag(flags, v)
	addStorageTypeFlag(flags, v)
	addStorageBlobBucketFlag(flags, v)
	addStorageBlobPrefixFlag(flags, v)
	addGracefulPeriodFlag(flags, v)
	addGzipLevelFlag(flags, v)
	addOtelEnabledFlag(flags, v)
	addServiceHealthzEnabledFlag(flags, v)
	addServicePrometheusEnabledFlag(flags, v)
	addServicePProfEnabledFlag(flags, v)

	return cmd
}

// supportedBlobSchemes url schemes of the registered bucket drivers
var supportedBlobSchemes = []string{"gs://", "s3://", "azblob://", "file://"}

// createStorage creates the snapshot storage, nil means sessions are not persisted
func createStorage(ctx context.Context, v *viper.Viper, l *zap.Logger) (session.Storage, error) {
	storageType := storageTypeFlag(v)
	bucket := storageBlobBucketFlag(v)
	prefix := storageBlobPrefixFlag(v)

	if storageType != "blob" && (bucket != "" || prefix != "") {
		l.Warn("blob storage flags are set but storage-type is not 'blob'; blob config will be ignored",
			zap.String("storage-type", storageType),
			zap.String("blob-bucket", bucket),
			zap.String("blob-prefix", prefix),
		)
	}

	switch storageType {
	case "none":
		l.Info("sessions are not persisted")
		return nil, nil
	case "blob":
		if bucket == "" {
			return nil, errors.Errorf("blob bucket url is required when storage-type is 'blob' (supported schemes: %s)", strings.Join(supportedBlobSchemes, ", "))
		}
		if !isValidBlobScheme(bucket) {
			return nil, errors.Errorf("unsupported blob storage url scheme in %q; supported schemes: %s", bucket, strings.Join(supportedBlobSchemes, ", "))
		}
		l.Info("using blob storage", zap.String("bucket", bucket), zap.String("prefix", prefix))
		return session.NewBlobStorage(ctx, bucket, prefix)
	case "filesystem", "":
		dir := historyDirFlag(v)
		l.Info("using filesystem storage", zap.String("dir", dir))
		return session.NewFilesystemStorage(dir)
	default:
		return nil, errors.Errorf("unknown storage type: %s (supported: none, filesystem, blob)", storageType)
	}
}

func isValidBlobScheme(bucketURL string) bool {
	for _, scheme := range supportedBlobSchemes {
		if strings.HasPrefix(bucketURL, scheme) {
			return true
		}
	}
	return false
}
