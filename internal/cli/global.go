package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sdmx-io/fmr-client/internal/client"
	"github.com/sdmx-io/fmr-client/pkg/log"
	"github.com/sdmx-io/fmr-client/pkg/requestid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// GlobalOptions are shared by every command. Settings come from the
// client config file, then FMR_* environment variables, then flags.
type GlobalOptions struct {
	ConfigFilePath     string
	ServerUrl          string
	Username           string
	Password           string
	InsecureSkipVerify bool
	OutputDir          string
	LogLevel           string

	config *client.Config
	flags  *pflag.FlagSet
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		ConfigFilePath: client.DefaultClientConfigPath(),
	}
}

func (o *GlobalOptions) Bind(fs *pflag.FlagSet) {
	o.flags = fs
	fs.StringVarP(&o.ConfigFilePath, "config", "c", o.ConfigFilePath, "Path to the client config file")
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "FMR API entrypoint, e.g. https://fmr.example.org")
	fs.StringVar(&o.Username, "username", o.Username, "Username for basic authentication")
	fs.StringVar(&o.Password, "password", o.Password, "Password for basic authentication")
	fs.BoolVar(&o.InsecureSkipVerify, "insecure-skip-tls-verify", o.InsecureSkipVerify, "Do not verify the server certificate (self-signed deployments only)")
	fs.StringVar(&o.OutputDir, "output-dir", o.OutputDir, "Directory ZIP responses are expanded into")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Log level: debug, info, warn, error")
}

func (o *GlobalOptions) Complete(cmd *cobra.Command, args []string) error {
	config, err := o.loadConfig()
	if err != nil {
		return err
	}
	if err := config.ApplyEnv(); err != nil {
		return err
	}

	if o.changed("server-url") {
		config.Service.Server = o.ServerUrl
	}
	if o.changed("username") {
		config.Service.Username = o.Username
	}
	if o.changed("password") {
		config.Service.Password = o.Password
	}
	if o.changed("insecure-skip-tls-verify") {
		config.Service.InsecureSkipVerify = o.InsecureSkipVerify
	}
	if o.changed("output-dir") {
		config.OutputDir = o.OutputDir
	}
	if o.changed("log-level") {
		config.LogLevel = o.LogLevel
	}
	o.config = config

	zap.ReplaceGlobals(log.InitLog(log.ParseLevel(config.LogLevel)))

	// Every request of one command invocation carries the same request ID.
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	id := requestid.Generate()
	cmd.SetContext(requestid.ToContext(ctx, id))
	zap.S().Debugw("starting command", "command", cmd.Name(), "request_id", id)

	if config.Service.InsecureSkipVerify {
		zap.S().Warnw("TLS certificate verification is disabled", "server", config.Service.Server)
	}
	return nil
}

func (o *GlobalOptions) Validate(args []string) error {
	if o.config == nil {
		return errors.New("options not completed")
	}
	return o.config.Validate()
}

// Client builds an FMR client printing to out.
func (o *GlobalOptions) Client(out io.Writer, opts ...client.Option) (*client.Client, error) {
	return client.New(o.config, append([]client.Option{client.WithOutput(out)}, opts...)...)
}

// loadConfig reads the config file. A missing file at the default
// location is not an error.
func (o *GlobalOptions) loadConfig() (*client.Config, error) {
	if _, err := os.Stat(o.ConfigFilePath); err != nil {
		if os.IsNotExist(err) && !o.changed("config") {
			return client.NewDefault(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return client.ParseConfigFile(o.ConfigFilePath)
}

func (o *GlobalOptions) changed(name string) bool {
	return o.flags != nil && o.flags.Changed(name)
}
