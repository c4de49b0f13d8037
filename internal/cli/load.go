package cli

import (
	"errors"
	"fmt"

	"github.com/sdmx-io/fmr-client/internal/client"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type LoadOptions struct {
	GlobalOptions

	filePath  string
	inputType string
	structure string
}

func DefaultLoadOptions() *LoadOptions {
	return &LoadOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdLoad() *cobra.Command {
	o := DefaultLoadOptions()
	cmd := &cobra.Command{
		Use:          "load",
		Short:        "Submit a data file to the asynchronous load service",
		Example:      "load --file-path data.csv --input-type application/vnd.sdmx.data+csv --structure urn:sdmx:org.sdmx.infomodel.datastructure.Dataflow=ECB:EXR(1.0)",
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

	if err := markRequired(cmd, "file-path", "input-type", "structure"); err != nil {
		panic(err)
	}

	return cmd
}

func (o *LoadOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.bindLoadFlags(fs)
}

func (o *LoadOptions) bindLoadFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.filePath, "file-path", "f", o.filePath, "Path to the data file to load")
	fs.StringVar(&o.inputType, "input-type", o.inputType, "Media type of the data file")
	fs.StringVar(&o.structure, "structure", o.structure, "SDMX URN of the source dataflow or data structure")
}

func (o *LoadOptions) Validate(args []string) error {
	if err := o.GlobalOptions.Validate(args); err != nil {
		return err
	}
	return checkDataFile(o.filePath)
}

func (o *LoadOptions) Run(cmd *cobra.Command, args []string) error {
	c, err := o.Client(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	uid, err := o.submit(cmd, c)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nJob submitted: %s\n", uid)
	return nil
}

func (o *LoadOptions) submit(cmd *cobra.Command, c *client.Client) (string, error) {
	ok, uid := c.SubmitLoad(cmd.Context(), o.config.Service.Server, o.filePath, o.inputType, o.structure)
	if !ok || uid == "" {
		return "", errors.New("load submission failed")
	}
	return uid, nil
}
