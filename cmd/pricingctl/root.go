package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fleetroad/pricingservice/internal/config"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pricingctl",
		Short: "Dynamic pricing rule engine for fleet service bookings",
		Long: `pricingctl runs the pricing API and offers offline tools to import rule sets
and preview them against recorded or generated booking scenarios.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); environment variables override it")

	rootCmd.AddCommand(newServeCmd(), newImportCmd(), newSimulateCmd())
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

// Execute runs the root command
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
