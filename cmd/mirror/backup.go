package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Run one backup pass and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		started := time.Now()
		if err := a.Backup.Run(ctx); err != nil {
			return err
		}
		a.Logger.Info("backup pass complete", zap.Duration("elapsed", time.Since(started)))
		return nil
	},
}
