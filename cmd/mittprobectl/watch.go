package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/mittwald/mittprobe/cmd"
	"github.com/mittwald/mittprobe/pkg/cli"
	"github.com/mittwald/mittprobe/pkg/probe"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

var (
	watchInterval time.Duration
	watchJSON     bool
)

func init() {
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 5*time.Second, "time between two status checks")
	watchCmd.Flags().BoolVarP(&watchJSON, "json", "j", false, "print every status response as JSON")
	ctlCommand.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow probe status",
	Long:  "This command streams the status of all probes until interrupted.",
	RunE: func(c *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		resp := cli.NewAPIClient(apiAddress).Watch(ctx, watchInterval, func(response probe.StatusResponse) error {
			if !watchJSON {
				fmt.Println(cmd.RenderStatus(response))
				return nil
			}

			body, err := json.Marshal(response)
			if err != nil {
				return err
			}
			fmt.Print(string(pretty.Color(pretty.Pretty(body), nil)))
			return nil
		})

		return resp.Print()
	},
}
