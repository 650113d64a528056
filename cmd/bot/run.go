package main

import (
	"carebot/internal/app"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var runFlags struct {
	config      string
	stopTimeout time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot and its periodic activities",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		return run(ctx, runFlags.config, runFlags.stopTimeout)
	},
}

func init() {
	runCmd.Flags().StringVar(&runFlags.config, "config", "./config.yaml", "path to config (yaml or json)")
	runCmd.Flags().DurationVar(&runFlags.stopTimeout, "stop-timeout", 10*time.Second, "graceful shutdown budget")
	rootCmd.AddCommand(runCmd)
}

func run(ctx context.Context, cfgPath string, stopTimeout time.Duration) error {
	a, err := app.New(cfgPath)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		_ = a.Stop(stopCtx, app.StopFatalError)
		return fmt.Errorf("start: %w", err)
	}

	reason := app.StopSignal
	select {
	case <-ctx.Done():
	case <-a.Done():
		if a.Err() != nil {
			reason = app.StopFatalError
		}
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	stopErr := a.Stop(stopCtx, reason)
	if reason == app.StopFatalError {
		return a.Err()
	}
	return stopErr
}
