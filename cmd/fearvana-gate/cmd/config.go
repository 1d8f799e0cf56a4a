package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fearvana/gate/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print an example configuration file",
	Long: `Print a fully-populated example fearvana-gate.yaml to stdout.

Redirect it to a file and edit from there:
  fearvana-gate config > fearvana-gate.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := config.ExampleYAML()
		if err != nil {
			return err
		}
		fmt.Fprint(os.Stdout, string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
