// Package main is the entry point for the arbitro CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/arbitro/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1) //nolint:gocritic // stop() already called
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "arbitro",
		Short:         "Football refereeing rules assistant",
		Long:          `arbitro answers questions about the laws of the game and points to the page of the rulebook each supporting fragment comes from.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to a YAML config file (default: config/<ENV>.yaml)")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(locateCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig reads --config when given, otherwise the file for the ENV environment.
func loadConfig(cmd *cobra.Command) (config.Config, string, error) {
	env := config.GetEnv()
	path, _ := cmd.Flags().GetString("config")

	var (
		cfg config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return config.Config{}, "", fmt.Errorf("load config: %w", err)
	}
	return cfg, env, nil
}
