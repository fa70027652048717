package cmd

import (
	"github.com/foomo/hbkbrowser/client"
	keelhttp "github.com/foomo/keel/net/http"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// backendArgs completes the backend url argument
func backendArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var comps []string
	if len(args) == 0 {
		comps = cobra.AppendActiveHelp(comps, "You must specify the URL of the help backend")
	}
	return comps, cobra.ShellCompDirectiveNoFileComp
}

func newBackend(l *zap.Logger, v *viper.Viper, server string) (*client.Client, error) {
	c, err := client.NewHTTPClient(server,
		client.WithLogger(l.Named("client")),
		client.WithHTTPClient(keelhttp.NewHTTPClient(
			keelhttp.HTTPClientWithTimeout(backendTimeoutFlag(v)),
			keelhttp.HTTPClientWithTelemetry(),
		)),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create backend client")
	}
	return c, nil
}
