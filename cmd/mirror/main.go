package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "mirror",
	Short:         "Ticket platform mirror: incremental backup to Postgres and snapshot restore",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, backupCmd, restoreCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Stderr.WriteString("error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func configPath() string {
	if p := os.Getenv("ZM_CONFIG"); p != "" {
		return p
	}
	return "config/config.yaml"
}

func envOnly() bool {
	raw := os.Getenv("ZM_ENV_ONLY")
	return strings.EqualFold(raw, "true") || raw == "1"
}
