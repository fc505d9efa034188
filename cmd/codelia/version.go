package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/codelia/internal/appconfig"
	"pkt.systems/codelia/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n",
				version.Label(os.Getenv(appconfig.EnvCLIVersion)), version.Read())
			return err
		},
	}
}
