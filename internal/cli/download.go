package cli

import (
	"fmt"

	"github.com/sdmx-io/fmr-client/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type DownloadOptions struct {
	GlobalOptions

	format     string
	outputFile string
}

func DefaultDownloadOptions() *DownloadOptions {
	return &DownloadOptions{
		GlobalOptions: DefaultGlobalOptions(),
		format:        "csv",
	}
}

func NewCmdDownload() *cobra.Command {
	o := DefaultDownloadOptions()
	cmd := &cobra.Command{
		Use:          "download UID",
		Short:        "Download the output of a load job",
		Example:      "download 0c5a8f4e-3a3e-4d2b-9f55-1f7c0b36b6ae --format json --output-file out.json",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(cmd, args); err != nil {
				return err
			}
			if err := o.Validate(args); err != nil {
				return err
			}
			return o.Run(cmd, args)
		},
	}
	o.Bind(cmd.Flags())
	return cmd
}

func (o *DownloadOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.bindDownloadFlags(fs)
}

func (o *DownloadOptions) bindDownloadFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.format, "format", o.format, "Output format: csv, json, xml or a media type")
	fs.StringVarP(&o.outputFile, "output-file", "o", o.outputFile, "Write the result to this file instead of stdout")
}

func (o *DownloadOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	_, err := client.ResolveFormat(o.format)
	return err
}

func (o *DownloadOptions) Run(cmd *cobra.Command, args []string) error {
	c, err := o.Client(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	return o.download(cmd, c, args[0])
}

func (o *DownloadOptions) download(cmd *cobra.Command, c *client.Client, uid string) error {
	accept, err := client.ResolveFormat(o.format)
	if err != nil {
		return err
	}
	body, err := c.DownloadResult(cmd.Context(), client.DownloadURL(o.config.Service.Server), uid, accept)
	if err != nil {
		return fmt.Errorf("downloading job %s: %w", uid, err)
	}
	return writeResult(cmd, o.outputFile, body)
}
