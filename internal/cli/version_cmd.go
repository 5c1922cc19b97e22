package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", binaryName, version.String())
			return nil
		},
	}
}
