// Package cmd provides the CLI commands for the OGx gateway.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/protexis/ogx-gateway/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ogx-gateway",
	Short: "OGx Gateway - message validation and delivery gateway",
	Long: `OGx Gateway validates and delivers messages to terminals on the
OGx satellite/cellular network.

Submissions arrive over a JSON HTTP API, pass through the protocol
gates and the Common Message Format validator, and are queued for
delivery to the upstream OGWS REST API with retries and dead-lettering.

Quick start:
  1. Create a config file: ogx-gateway.yaml
  2. Run: ogx-gateway start

Configuration:
  Config is loaded from ogx-gateway.yaml in the current directory,
  $HOME/.ogx-gateway/, or /etc/ogx-gateway/.

  Environment variables can override config values with the OGX_GATEWAY_ prefix.
  Example: OGX_GATEWAY_OGWS_CLIENT_SECRET=...

Commands:
  start       Start the gateway server
  stop        Stop the running server
  reset       Reset to clean state (remove persisted token)
  hash-key    Generate an Argon2id hash for an API key
  version     Print version information`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./ogx-gateway.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
