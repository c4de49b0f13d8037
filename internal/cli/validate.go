package cli

import (
	"fmt"

	"github.com/sdmx-io/fmr-client/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type ValidateOptions struct {
	GlobalOptions

	filePath    string
	contentType string
	structure   string
	headers     map[string]string
}

func DefaultValidateOptions() *ValidateOptions {
	return &ValidateOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdValidate() *cobra.Command {
	o := DefaultValidateOptions()
	cmd := &cobra.Command{
		Use:          "validate",
		Short:        "Validate a data file with the synchronous validation service",
		Example:      "validate --file-path data.xml --content-type application/xml --structure urn:sdmx:org.sdmx.infomodel.datastructure.Dataflow=ECB:EXR(1.0)",
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

func (o *ValidateOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)

	fs.StringVarP(&o.filePath, "file-path", "f", o.filePath, "Path to the data file to validate")
	fs.StringVar(&o.contentType, "content-type", o.contentType, "Media type of the data file")
	fs.StringVar(&o.structure, "structure", o.structure, "SDMX URN of the dataflow or data structure to validate against")
	fs.StringToStringVarP(&o.headers, "header", "H", o.headers, "Extra request header as Key=Value, repeatable")
}

func (o *ValidateOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return checkDataFile(o.filePath)
}

func (o *ValidateOptions) Run(cmd *cobra.Command, args []string) error {
	c, err := o.Client(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	headers := requestHeaders(o.contentType, o.structure, o.headers)
	outcome, err := c.Validate(cmd.Context(), client.ValidateURL(o.config.Service.Server), o.filePath, headers)
	if err != nil {
		return fmt.Errorf("validating %s: %w", o.filePath, err)
	}
	if outcome != client.ValidateClean {
		return fmt.Errorf("validation of %s ended with outcome %q", o.filePath, outcome)
	}
	return nil
}
