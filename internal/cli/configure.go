package cli

import (
	"fmt"

	"github.com/sdmx-io/fmr-client/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ConfigureOptions struct {
	ConfigFilePath     string
	ServerUrl          string
	Username           string
	Password           string
	InsecureSkipVerify bool
}

func DefaultConfigureOptions() *ConfigureOptions {
	return &ConfigureOptions{
		ConfigFilePath: client.DefaultClientConfigPath(),
	}
}

func NewCmdConfigure() *cobra.Command {
	o := DefaultConfigureOptions()
	cmd := &cobra.Command{
		Use:          "configure",
		Short:        "Write the client config file",
		Example:      "configure --server-url https://fmr.example.org --username admin --password secret",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run(cmd, args)
		},
	}
	o.Bind(cmd.Flags())

	if err := markRequired(cmd, "server-url"); err != nil {
		panic(err)
	}

	return cmd
}

func (o *ConfigureOptions) Bind(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFilePath, "config", "c", o.ConfigFilePath, "Path to the client config file")
	fs.StringVarP(&o.ServerUrl, "server-url", "u", o.ServerUrl, "FMR API entrypoint, e.g. https://fmr.example.org")
	fs.StringVar(&o.Username, "username", o.Username, "Username for basic authentication")
	fs.StringVar(&o.Password, "password", o.Password, "Password for basic authentication")
	fs.BoolVar(&o.InsecureSkipVerify, "insecure-skip-tls-verify", o.InsecureSkipVerify, "Do not verify the server certificate (self-signed deployments only)")
}

func (o *ConfigureOptions) Run(cmd *cobra.Command, args []string) error {
	service := client.Service{
		Server:             o.ServerUrl,
		Username:           o.Username,
		Password:           o.Password,
		InsecureSkipVerify: o.InsecureSkipVerify,
	}
	written, err := client.WriteConfig(o.ConfigFilePath, service)
	if err != nil {
		return err
	}
	if !written {
		fmt.Fprintf(cmd.OutOrStdout(), "Config %s is up to date\n", o.ConfigFilePath)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", o.ConfigFilePath)
	return nil
}
