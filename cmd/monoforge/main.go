package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	repoDir    string
	rootCmd    = &cobra.Command{
		Use:   "monoforge",
		Short: "Monoforge - monorepo build orchestrator",
		Long: `Monoforge manages a monorepo of interdependent packages.
It builds the dependency graph from per-package manifests, synthesizes
complete manifests from shared repo-wide declarations, and runs install
and build actions across packages in dependency order.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&repoDir, "directory", "C", ".", "directory inside the monorepo")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
