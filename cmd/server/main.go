package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AdrianSkaw/dynamic/internal/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "hive",
	Short: "Dynamic entity storage service",
	Long: `hive stores entity definitions and creates a Postgres table for each one.
Records are written through the storage behavior of the entity type.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(serveCmd(), migrateCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
