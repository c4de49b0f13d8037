package cli

import (
	"fmt"

	"github.com/sdmx-io/fmr-client/pkg/version"
	"github.com/spf13/cobra"
)

func NewCmdVersion() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print fmrctl version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			versionInfo := version.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "fmrctl Version: %s\n", versionInfo.String())
			return nil
		},
	}
	return cmd
}
