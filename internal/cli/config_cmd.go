package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Blackout-Industries/oci-oke-node-inspector/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "view",
			Short: "Show the effective configuration (defaults, file, .env and environment merged)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				v, err := a.cfg.YAML()
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the configuration file path",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path := strings.TrimSpace(a.configPath)
				if path == "" {
					p, err := config.FilePath()
					if err != nil {
						return err
					}
					path = p
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a default configuration file if none exists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path, created, err := config.EnsureExists(a.configPath)
				if err != nil {
					return err
				}
				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "Wrote default configuration to %s\n", path)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Configuration already exists at %s\n", path)
				}
				return nil
			},
		},
	)
	return cmd
}
