package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var waitTimeout time.Duration

func init() {
	waitCmd.Flags().DurationVarP(&waitTimeout, "timeout", "t", 0, "give up after this duration (0 waits forever)")
	rootCmd.AddCommand(waitCmd)
}

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait until all probes marked with wait are UP",
	Long:  "This sub-command blocks until every probe declared with `wait = true` reports UP. It can be used as a readiness gate in container entrypoints.",
	RunE: func(cmd *cobra.Command, args []string) error {
		handler, _, err := loadProbeHandler()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		if waitTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, waitTimeout)
			defer cancel()
		}

		if err := handler.Wait(ctx); err != nil {
			return errors.Wrap(err, "probes did not become ready")
		}

		log.Info("all dependencies are ready")
		return nil
	},
}
