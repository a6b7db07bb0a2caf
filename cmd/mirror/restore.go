package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ticketmirror/internal/service"
)

var restoreOpts service.RestoreOptions

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Rebuild structured tables from stored raw snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		report, err := a.Restore.Run(ctx, restoreOpts)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	restoreCmd.Flags().StringVar(&restoreOpts.Scope, "scope", "all", "resources to restore: 'all' or a comma separated list")
	restoreCmd.Flags().IntVar(&restoreOpts.Limit, "limit", 0, "restore at most this many snapshots per resource (0 = all)")
	restoreCmd.Flags().IntVar(&restoreOpts.Offset, "offset", 0, "skip this many snapshots per resource")
	restoreCmd.Flags().BoolVar(&restoreOpts.TruncateFirst, "truncate-first", false, "empty the scoped tables before restoring")
	restoreCmd.Flags().BoolVar(&restoreOpts.DryRun, "dry-run", false, "count what would be restored without writing")
}
