package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/mittwald/mittprobe/pkg/probe"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"
)

var (
	checkJSON   bool
	checkFormat string
)

func init() {
	checkCmd.Flags().BoolVarP(&checkJSON, "json", "j", false, "output as JSON")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "", "render the status response with a Go template (sprig functions available)")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run all probes once",
	Long:  "This sub-command runs every configured probe once and prints the result. It exits with status 1 if any probe is DOWN.",
	RunE: func(cmd *cobra.Command, args []string) error {
		handler, _, err := loadProbeHandler()
		if err != nil {
			return err
		}

		response := handler.CheckAll()
		if err := printStatus(os.Stdout, response); err != nil {
			return err
		}

		if !response.Status.IsUp() {
			os.Exit(1)
		}
		return nil
	},
}

func printStatus(out io.Writer, response probe.StatusResponse) error {
	switch {
	case checkFormat != "":
		rendered, err := renderTemplate(checkFormat, response)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, rendered)
		return err

	case checkJSON:
		body, err := json.Marshal(response)
		if err != nil {
			return errors.Wrap(err, "failed to marshal status response")
		}
		_, err = out.Write(pretty.Color(pretty.Pretty(body), nil))
		return err
	}

	_, err := fmt.Fprintln(out, RenderStatus(response))
	return err
}

func renderTemplate(format string, response probe.StatusResponse) (string, error) {
	tpl, err := template.New("format").Funcs(sprig.TxtFuncMap()).Parse(format)
	if err != nil {
		return "", errors.Wrap(err, "invalid format template")
	}

	var out strings.Builder
	if err := tpl.Execute(&out, response); err != nil {
		return "", errors.Wrap(err, "failed to render format template")
	}
	return out.String(), nil
}
