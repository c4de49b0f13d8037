package cli

import (
	"fmt"

	"github.com/sdmx-io/fmr-client/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// RunOptions chains load, status and download for one data file.
type RunOptions struct {
	GlobalOptions

	load     LoadOptions
	status   StatusOptions
	download DownloadOptions

	downloadOnError bool
}

func DefaultRunOptions() *RunOptions {
	return &RunOptions{
		GlobalOptions: DefaultGlobalOptions(),
		download:      *DefaultDownloadOptions(),
	}
}

func NewCmdRun() *cobra.Command {
	o := DefaultRunOptions()
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "Load a data file, wait for the job and download its output",
		Example:      "run --file-path data.csv --input-type application/vnd.sdmx.data+csv --structure urn:sdmx:org.sdmx.infomodel.datastructure.Dataflow=ECB:EXR(1.0) --format json",
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

func (o *RunOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.load.bindLoadFlags(fs)
	o.status.bindPollFlags(fs)
	o.download.bindDownloadFlags(fs)
	fs.BoolVar(&o.downloadOnError, "download-on-error", o.downloadOnError, "Download the job output even when the job ended with errors")
}

func (o *RunOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	if o.changed("interval") {
		o.config.Poll.Interval = util.Duration(o.status.interval)
	}
	if o.changed("max-attempts") {
		o.config.Poll.MaxAttempts = o.status.maxAttempts
	}
	o.load.GlobalOptions = o.GlobalOptions
	o.status.GlobalOptions = o.GlobalOptions
	o.download.GlobalOptions = o.GlobalOptions
	return nil
}

func (o *RunOptions) Validate(args []string) error {
	if err := o.load.Validate(args); err != nil {
		return err
	}
	return o.download.Validate(args)
}

func (o *RunOptions) Run(cmd *cobra.Command, args []string) error {
	c, err := o.Client(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	uid, err := o.load.submit(cmd, c)
	if err != nil {
		return err
	}
	zap.S().Infow("waiting for job", "uid", uid, "interval", o.config.Poll.Interval.Std())

	pollErr := o.status.poll(cmd, c, uid)
	if pollErr != nil && !o.downloadOnError {
		return pollErr
	}
	if err := o.download.download(cmd, c, uid); err != nil {
		return err
	}
	return pollErr
}
