package cmd

import (
	"net"
	"net/http"
	"net/http/pprof"

	"github.com/mittwald/mittprobe/internal/config"
	"github.com/mittwald/mittprobe/pkg/probe"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configDir     string
	logLevel      string
	enableProfile bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", "/etc/mittprobe.d", "set directory to where your .hcl-configs are located")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&enableProfile, "profile", false, "enable pprof http server")
}

var rootCmd = &cobra.Command{
	Use:     "mittprobe",
	Short:   "Mittprobe - health probes for service dependencies",
	Long:    "Mittprobe checks the external dependencies of a service (config server, discovery, databases, caches, brokers) and reports their health",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", logLevel)
		}
		log.SetLevel(level)

		if enableProfile {
			go servePprof()
		}
		return nil
	},
}

func servePprof() {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		log.Errorf("pprof server failed to listen: %v", err)
		return
	}
	log.Infof("starting pprof server on http://localhost%s/debug/pprof/", listener.Addr().String())
	if err := http.Serve(listener, mux); err != nil {
		log.Errorf("pprof server error: %v", err)
	}
}

// loadProbeHandler reads every configuration file in the config dir and
// builds the declared probes.
func loadProbeHandler() (*probe.Handler, *config.Ignition, error) {
	ignitionConfig := &config.Ignition{}
	if err := ignitionConfig.GenerateFromConfigDir(configDir); err != nil {
		return nil, nil, errors.Wrapf(err, "failed to load configuration from %s", configDir)
	}

	handler, err := probe.NewProbeHandler(ignitionConfig)
	if err != nil {
		return nil, nil, err
	}
	return handler, ignitionConfig, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
