package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sdmx-io/fmr-client/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := NewFmrCtlCommand()
	if err := command.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func NewFmrCtlCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fmrctl [flags] [options]",
		Short: "fmrctl validates, transforms and loads SDMX data with an FMR server.",
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
			os.Exit(1)
		},
	}
	cmd.AddCommand(cli.NewCmdValidate())
	cmd.AddCommand(cli.NewCmdTransform())
	cmd.AddCommand(cli.NewCmdLoad())
	cmd.AddCommand(cli.NewCmdStatus())
	cmd.AddCommand(cli.NewCmdDownload())
	cmd.AddCommand(cli.NewCmdRun())
	cmd.AddCommand(cli.NewCmdConfigure())
	cmd.AddCommand(cli.NewCmdVersion())

	return cmd
}
