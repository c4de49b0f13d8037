package cli

import (
	"fmt"
	"time"

	"github.com/sdmx-io/fmr-client/internal/client"
	"github.com/sdmx-io/fmr-client/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type StatusOptions struct {
	GlobalOptions

	interval    time.Duration
	maxAttempts int
}

func DefaultStatusOptions() *StatusOptions {
	return &StatusOptions{
		GlobalOptions: DefaultGlobalOptions(),
	}
}

func NewCmdStatus() *cobra.Command {
	o := DefaultStatusOptions()
	cmd := &cobra.Command{
		Use:          "status UID",
		Short:        "Wait for a load job to finish and report whether it has errors",
		Example:      "status 0c5a8f4e-3a3e-4d2b-9f55-1f7c0b36b6ae --interval 10s",
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

func (o *StatusOptions) Bind(fs *pflag.FlagSet) {
	o.GlobalOptions.Bind(fs)
	o.bindPollFlags(fs)
}

func (o *StatusOptions) bindPollFlags(fs *pflag.FlagSet) {
	fs.DurationVar(&o.interval, "interval", o.interval, "Wait between two status checks (defaults to the configured poll interval)")
	fs.IntVar(&o.maxAttempts, "max-attempts", o.maxAttempts, "Give up after this many status checks, 0 means no limit")
}

func (o *StatusOptions) Complete(cmd *cobra.Command, args []string) error {
	if err := o.GlobalOptions.Complete(cmd, args); err != nil {
		return err
	}
	if o.changed("interval") {
		o.config.Poll.Interval = util.Duration(o.interval)
	}
	if o.changed("max-attempts") {
		o.config.Poll.MaxAttempts = o.maxAttempts
	}
	return nil
}

func (o *StatusOptions) Run(cmd *cobra.Command, args []string) error {
	c, err := o.Client(cmd.OutOrStdout())
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	return o.poll(cmd, c, args[0])
}

func (o *StatusOptions) poll(cmd *cobra.Command, c *client.Client, uid string) error {
	errored, err := c.PollStatus(cmd.Context(), client.LoadStatusURL(o.config.Service.Server), uid, o.config.Poll.Interval.Std())
	if err != nil {
		return fmt.Errorf("polling job %s: %w", uid, err)
	}
	if errored {
		return fmt.Errorf("job %s ended with errors", uid)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Job %s completed without errors\n", uid)
	return nil
}
