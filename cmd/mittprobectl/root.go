package main

import (
	"fmt"
	"os"

	"github.com/mittwald/mittprobe/cmd"
	"github.com/spf13/cobra"
)

var (
	apiAddress string
)

func init() {
	ctlCommand.PersistentFlags().StringVarP(&apiAddress, "api-address", "", cmd.DefaultAPIAddress, "address of the mittprobe status API (http://host:port or unix:///path/to/socket)")
	ctlCommand.AddCommand(cmd.VersionCmd)
}

var ctlCommand = &cobra.Command{
	Use:           "mittprobectl",
	Short:         "query a running mittprobe server from cli",
	Long:          "This command can be used to inspect the probes of a running mittprobe server.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() {
	if err := ctlCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}
