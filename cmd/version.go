package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	Version string
	Commit  string
	BuiltAt string
)

func init() {
	rootCmd.AddCommand(VersionCmd)
}

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of mittprobe",
	Long:  `All software has versions. This is mittprobe's`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mittprobe %s (commit %s), built at %s\n", Version, Commit, BuiltAt)
	},
}
