package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentic-research/manifestdb/internal/dblist"
	"github.com/agentic-research/manifestdb/internal/freshness"
	"github.com/agentic-research/manifestdb/internal/logging"
	"github.com/spf13/cobra"
)

func (a *app) watchCmd() *cobra.Command {
	var interval time.Duration
	c := &cobra.Command{
		Use:   "watch [manifest]",
		Short: "Keep a compiled store in step with its manifest until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.manifestPath(args)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("interval") {
				interval = a.cfg.Watch.PollInterval
			}
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			initial, err := a.compileStore(ctx, path)
			if err != nil {
				return err
			}
			h := freshness.New(initial, func(ctx context.Context) (*dblist.Store, error) {
				return a.compileStore(ctx, path)
			}, freshness.WithLogger(logging.Component("freshness")))
			defer h.Close()

			a.logger.Info("watching manifest", "manifest", path, "interval", interval)
			err = h.Watch(ctx, interval)
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		},
	}
	c.Flags().DurationVar(&interval, "interval", 30*time.Second, "Poll interval (env MANIFESTDB_POLL_INTERVAL)")
	return c
}
