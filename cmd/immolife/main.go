// Package main is the entry point for the ImmoLife simulation server.
// It only handles dependency injection and command wiring.
// NO business logic belongs here.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "immolife",
		Short:         "ImmoLife property-management simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().String("env-file", ".env", "path to a .env file with IMMOLIFE_* overrides")

	rootCmd.AddCommand(
		serveCmd(),
		simulateCmd(),
		savesCmd(),
		journalCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
