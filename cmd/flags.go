package cmd

import (
	"time"

	"github.com/foomo/hbkbrowser/pkg/resolve"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "HBKBROWSER_"

func logLevelFlag(v *viper.Viper) string {
	return v.GetString("log.level")
}

func addLogLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-level", "info", "log level")
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = v.BindEnv("log.level", "LOG_LEVEL")
}

func logFormatFlag(v *viper.Viper) string {
	return v.GetString("log.format")
}

func addLogFormatFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("log-format", "json", "log format")
	_ = v.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = v.BindEnv("log.format", "LOG_FORMAT")
}

func addressFlag(v *viper.Viper) string {
	return v.GetString("address")
}

func addAddressFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("address", ":8080", "Address to bind to (host:port)")
	_ = v.BindPFlag("address", flags.Lookup("address"))
	_ = v.BindEnv("address", envPrefix+"ADDRESS")
}

func basePathFlag(v *viper.Viper) string {
	return v.GetString("base_path")
}

func addBasePathFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("base-path", "/hbkbrowser", "Base path to export the gateway on")
	_ = v.BindPFlag("base_path", flags.Lookup("base-path"))
	_ = v.BindEnv("base_path", envPrefix+"BASE_PATH")
}

func allowedOriginsFlag(v *viper.Viper) []string {
	return v.GetStringSlice("cors.allowed_origins")
}

func addAllowedOriginsFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.StringSlice("cors-allowed-origins", []string{"http://localhost:*", "http://127.0.0.1:*"}, "Origins allowed to call the gateway")
	_ = v.BindPFlag("cors.allowed_origins", flags.Lookup("cors-allowed-origins"))
	_ = v.BindEnv("cors.allowed_origins", envPrefix+"CORS_ALLOWED_ORIGINS")
}

func backendTimeoutFlag(v *viper.Viper) time.Duration {
	return v.GetDuration("backend.timeout")
}

func addBackendTimeoutFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Duration("backend-timeout", 10*time.Second, "Timeout for requests against the help backend")
	_ = v.BindPFlag("backend.timeout", flags.Lookup("backend-timeout"))
	_ = v.BindEnv("backend.timeout", envPrefix+"BACKEND_TIMEOUT")
}

func localeFlag(v *viper.Viper) string {
	return v.GetString("locale")
}

func addLocaleFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("locale", "ru", "Default locale")
	_ = v.BindPFlag("locale", flags.Lookup("locale"))
	_ = v.BindEnv("locale", envPrefix+"LOCALE")
}

func schemeFlag(v *viper.Viper) string {
	return v.GetString("resolve.scheme")
}

func addSchemeFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("scheme", resolve.DefaultScheme, "Scheme of cross reference links")
	_ = v.BindPFlag("resolve.scheme", flags.Lookup("scheme"))
	_ = v.BindEnv("resolve.scheme", envPrefix+"SCHEME")
}

func resolveCacheSizeFlag(v *viper.Viper) int {
	return v.GetInt("resolve.cache_size")
}

func addResolveCacheSizeFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("resolve-cache-size", 1024, "Number of link resolutions to cache, 0 disables the cache")
	_ = v.BindPFlag("resolve.cache_size", flags.Lookup("resolve-cache-size"))
	_ = v.BindEnv("resolve.cache_size", envPrefix+"RESOLVE_CACHE_SIZE")
}

func knownBooksFlag(v *viper.Viper) bool {
	return v.GetBool("resolve.known_books")
}

func addKnownBooksFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("resolve-known-books", true, "Reject links into books missing from the table of contents without asking the backend")
	_ = v.BindPFlag("resolve.known_books", flags.Lookup("resolve-known-books"))
	_ = v.BindEnv("resolve.known_books", envPrefix+"RESOLVE_KNOWN_BOOKS")
}

func matchTitleFlag(v *viper.Viper) bool {
	return v.GetBool("expand.match_title")
}

func addMatchTitleFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("match-title", false, "Match path segments against node titles instead of page paths")
	_ = v.BindPFlag("expand.match_title", flags.Lookup("match-title"))
	_ = v.BindEnv("expand.match_title", envPrefix+"MATCH_TITLE")
}

func depthFlag(v *viper.Viper) int {
	return v.GetInt("depth")
}

func addDepthFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("depth", 1, "Number of levels to fetch")
	_ = v.BindPFlag("depth", flags.Lookup("depth"))
}

func prefetchFlag(v *viper.Viper) int {
	return v.GetInt("prefetch")
}

func addPrefetchFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("prefetch", 0, "Number of concurrent children loads for the fetched nodes, 0 disables prefetching")
	_ = v.BindPFlag("prefetch", flags.Lookup("prefetch"))
}

func historyDirFlag(v *viper.Viper) string {
	return v.GetString("history.dir")
}

func addHistoryDirFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("history-dir", "/var/lib/hbkbrowser", "Where to put session snapshots")
	_ = v.BindPFlag("history.dir", flags.Lookup("history-dir"))
	_ = v.BindEnv("history.dir", envPrefix+"HISTORY_DIR")
}

func historyLimitFlag(v *viper.Viper) int {
	return v.GetInt("history.limit")
}

func addHistoryLimitFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("history-limit", 2, "Number of snapshot backups to keep per session")
	_ = v.BindPFlag("history.limit", flags.Lookup("history-limit"))
	_ = v.BindEnv("history.limit", envPrefix+"HISTORY_LIMIT")
}

func storageTypeFlag(v *viper.Viper) string {
	return v.GetString("storage.type")
}

func addStorageTypeFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-type", "filesystem", "Snapshot storage: none, filesystem or blob")
	_ = v.BindPFlag("storage.type", flags.Lookup("storage-type"))
	_ = v.BindEnv("storage.type", envPrefix+"STORAGE_TYPE")
}

func storageBlobBucketFlag(v *viper.Viper) string {
	return v.GetString("storage.blob.bucket")
}

func addStorageBlobBucketFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-blob-bucket", "", "Bucket url for blob storage (gs://, s3://, azblob://, file://)")
	_ = v.BindPFlag("storage.blob.bucket", flags.Lookup("storage-blob-bucket"))
	_ = v.BindEnv("storage.blob.bucket", envPrefix+"STORAGE_BLOB_BUCKET")
}

func storageBlobPrefixFlag(v *viper.Viper) string {
	return v.GetString("storage.blob.prefix")
}

func addStorageBlobPrefixFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.String("storage-blob-prefix", "", "Key prefix within the blob bucket")
	_ = v.BindPFlag("storage.blob.prefix", flags.Lookup("storage-blob-prefix"))
	_ = v.BindEnv("storage.blob.prefix", envPrefix+"STORAGE_BLOB_PREFIX")
}

func gracefulPeriodFlag(v *viper.Viper) time.Duration {
	return v.GetDuration("graceful_period")
}

func addGracefulPeriodFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Duration("graceful-period", 0, "Graceful period before shutting down")
	_ = v.BindPFlag("graceful_period", flags.Lookup("graceful-period"))
	_ = v.BindEnv("graceful_period", envPrefix+"GRACEFUL_PERIOD")
}

func gzipLevelFlag(v *viper.Viper) int {
	return v.GetInt("gzip.level")
}

func addGzipLevelFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Int("gzip-level", 6, "Compression level of gateway replies")
	_ = v.BindPFlag("gzip.level", flags.Lookup("gzip-level"))
	_ = v.BindEnv("gzip.level", envPrefix+"GZIP_LEVEL")
}

func serviceHealthzEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.healthz.enabled")
}

func addServiceHealthzEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-healthz-enabled", false, "Enable healthz service")
	_ = v.BindPFlag("service.healthz.enabled", flags.Lookup("service-healthz-enabled"))
}

func servicePrometheusEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.prometheus.enabled")
}

func addServicePrometheusEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-prometheus-enabled", false, "Enable prometheus service")
	_ = v.BindPFlag("service.prometheus.enabled", flags.Lookup("service-prometheus-enabled"))
}

func servicePProfEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("service.pprof.enabled")
}

func addServicePProfEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("service-pprof-enabled", false, "Enable pprof service")
	_ = v.BindPFlag("service.pprof.enabled", flags.Lookup("service-pprof-enabled"))
}

func otelEnabledFlag(v *viper.Viper) bool {
	return v.GetBool("otel.enabled")
}

func addOtelEnabledFlag(flags *pflag.FlagSet, v *viper.Viper) {
	flags.Bool("otel-enabled", false, "Enable otel service")
	_ = v.BindPFlag("otel.enabled", flags.Lookup("otel-enabled"))
	_ = v.BindEnv("otel.enabled", "OTEL_ENABLED")
}
