package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/mittwald/mittprobe/pkg/pidfile"
	"github.com/mittwald/mittprobe/pkg/probe"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	DefaultListenAddress = ":9102"

	// DefaultAPIAddress is where mittprobectl expects a local server.
	DefaultAPIAddress = "http://localhost:9102"
)

var (
	listenAddress string
	checkTimeout  string
	pidFile       string
)

func init() {
	serveCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "address to serve the status API on (host:port or unix:///path/to/socket); overrides the server block")
	serveCmd.Flags().StringVar(&checkTimeout, "timeout", "", "time a probe may take before it is reported as timed out; overrides the server block")
	serveCmd.Flags().StringVar(&pidFile, "pidfile", "", "write mittprobes process id to this file")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve probe status over HTTP",
	Long:  "This sub-command loads the configured probes and serves their status on /status, /status/{probe} and /status/watch",
	RunE: func(cmd *cobra.Command, args []string) error {
		handler, ignitionConfig, err := loadProbeHandler()
		if err != nil {
			return err
		}

		if checkTimeout != "" {
			if err := handler.SetTimeout(checkTimeout); err != nil {
				return err
			}
		}

		addr := listenAddress
		if addr == "" && ignitionConfig.Server != nil {
			addr = ignitionConfig.Server.Listen
		}
		if addr == "" {
			addr = DefaultListenAddress
		}

		pidFileHandle := pidfile.New(pidFile)
		if err := pidFileHandle.Acquire(); err != nil {
			return err
		}
		defer func() {
			if err := pidFileHandle.Release(); err != nil {
				log.Errorf("error while cleaning up the pid file: %s", err)
			}
		}()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		log.WithField("probes", handler.Names()).Info("starting probe server")
		return probe.RunProbeServer(ctx, handler, addr)
	},
}
