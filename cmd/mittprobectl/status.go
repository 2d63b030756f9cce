package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mittwald/mittprobe/cmd"
	"github.com/mittwald/mittprobe/pkg/cli"
	"github.com/spf13/cobra"
)

func init() {
	statusCmd.Flags().BoolP("json", "j", false, "print status as JSON")
	statusCmd.Flags().Bool("exit-with-status", false, "exit with status code 0 if UP, 1 if DOWN")

	ctlCommand.AddCommand(&statusCmd)
}

var styleInfoBox = lipgloss.NewStyle().
	Padding(0, 1).
	Margin(1, 0).
	BorderStyle(lipgloss.RoundedBorder()).
	Width(80)

var styleCommand = lipgloss.NewStyle().Foreground(lipgloss.Color("#407FF8")).Bold(true)
var styleCommandBlock = lipgloss.NewStyle().Margin(1, 0).PaddingLeft(2)
var styleParam = lipgloss.NewStyle().Foreground(lipgloss.Color("#00B785"))

var statusCmd = cobra.Command{
	Use:        "status [probe]",
	Args:       cobra.MaximumNArgs(1),
	ArgAliases: []string{"probe"},
	Short:      "Show probe status",
	Long:       "This command shows the status of all probes, or of a single probe when its name is given.",

	RunE: func(c *cobra.Command, args []string) error {
		apiClient := cli.NewAPIClient(apiAddress)
		printJSON, _ := c.Flags().GetBool("json")
		exitWithStatus, _ := c.Flags().GetBool("exit-with-status")

		var (
			resp cli.APIResponse
			up   bool
			text string
		)

		if len(args) == 1 {
			r := apiClient.ProbeStatus(args[0])
			if r.Err() != nil {
				return fmt.Errorf("failed to get status of probe %s: %w", args[0], r.Err())
			}
			resp, up, text = r, r.Body.Status().IsUp(), cmd.ProbeStatusLine(args[0], r.Body)
		} else {
			r := apiClient.Status()
			if r.Err() != nil {
				return fmt.Errorf("failed to get status: %w", r.Err())
			}
			resp, up, text = r, r.Body.Status.IsUp(), cmd.RenderStatus(r.Body)
		}

		if printJSON {
			if err := resp.Print(); err != nil {
				return fmt.Errorf("failed to print output: %w", err)
			}
		} else {
			fmt.Println(text)
			fmt.Println(styleInfoBox.Render(
				lipgloss.JoinVertical(
					lipgloss.Left,
					"To follow the status of all probes, you can use the following command:",
					styleCommandBlock.Render(styleCommand.Render(c.Parent().CommandPath()+" watch")+styleParam.Render(" --interval 5s")),
				),
			))
		}

		if !up && exitWithStatus {
			os.Exit(1)
		}

		return nil
	},
}
