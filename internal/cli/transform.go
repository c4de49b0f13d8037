package cli

import (
	"fmt"

	"github.com/sdmx-io/fmr-client/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type TransformOptions struct {
	GlobalOptions

	filePath    string
	contentType string
	structure   string
	format      string
	headers     map[string]string
}

func DefaultTransformOptions() *TransformOptions {
	return &TransformOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdTransform() *cobra.Command {
	o := DefaultTransformOptions()
	cmd := &cobra.Command{
		Use:          "transform",
		Short:        "Transform a data file with the synchronous transformation service",
		Example:      "transform --file-path data.csv --content-type application/vnd.sdmx.data+csv --format json",
		Args:         cobra.NoArgs,
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

	if err := markRequired(cmd, "file-path"); err != nil {
		panic(err)
	}

	return cmd
}

func (o *TransformOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.filePath, "file-path", "f", o.filePath, "Path to the data file to transform")
	fs.StringVar(&o.contentType, "content-type", o.contentType, "Media type of the data file")
	fs.StringVar(&o.structure, "structure", o.structure, "SDMX URN of the source dataflow or data structure")
	fs.StringVar(&o.format, "format", o.format, "Output format: csv, json, xml or a media type")
	fs.StringToStringVarP(&o.headers, "header", "H", o.headers, "Extra request header as Key=Value, repeatable")
}

func (o *TransformOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	if o.format != "" {
		if _, err := client.ResolveFormat(o.format); err != nil {
			return err
		}
	}
	return checkDataFile(o.filePath)
}

func (o *TransformOptions) Run(cmd *cobra.Command, args []string) error {
	c, err := o.Client(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	headers := requestHeaders(o.contentType, o.structure, o.headers)
	if o.format != "" {
		accept, _ := client.ResolveFormat(o.format)
		headers.Set("Accept", accept)
	}

	ok, err := c.Transform(cmd.Context(), client.TransformURL(o.config.Service.Server), o.filePath, headers)
	if err != nil {
		return fmt.Errorf("transforming %s: %w", o.filePath, err)
	}
	if !ok {
		return fmt.Errorf("transformation of %s failed", o.filePath)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nTransformation succeeded, output written to %s\n", o.config.ResolvedOutputDir())
	return nil
}
