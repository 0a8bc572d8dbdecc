package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	serve := newServeCmd(&cfgPath)
	root := &cobra.Command{
		Use:          "checkout-service",
		Short:        "Sell digital products through a payment gateway",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "optional YAML config file; environment variables take precedence")
	root.AddCommand(
		serve,
		newSignCmd(&cfgPath),
		newMigrateCmd(&cfgPath),
	)
	return root
}
