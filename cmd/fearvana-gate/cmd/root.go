// Package cmd provides the CLI commands for Fearvana Gate.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fearvana/gate/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "fearvana-gate",
	Short: "Fearvana Gate - API request gatekeeper",
	Long: `Fearvana Gate is a request gatekeeper that fronts the Fearvana
application API.

Every API request passes through a fixed pipeline before it reaches the
application: per-class rate limiting, origin allow-list checks, CSRF
double-submit validation, and bearer token authentication on protected
routes. Allowed requests are forwarded upstream with the caller's
identity in the X-User-Id header.

Quick start:
  1. Create a config file: fearvana-gate.yaml (see: fearvana-gate config)
  2. Run: fearvana-gate start

Configuration:
  Config is loaded from fearvana-gate.yaml in the current directory,
  $HOME/.fearvana-gate/, or /etc/fearvana-gate/.

  Environment variables can override config values with the FEARVANA_GATE_
  prefix. Example: FEARVANA_GATE_SERVER_HTTP_ADDR=:9090

Commands:
  start       Start the gatekeeper
  config      Print an example configuration file
  hash-key    Generate a hash for a bearer key
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
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./fearvana-gate.yaml)")
}

func initConfig() {
	config.InitViper(cfgFile)
}
