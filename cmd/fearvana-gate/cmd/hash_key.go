package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fearvana/gate/internal/domain/auth"
)

var useArgon2id bool

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key [bearer-key]",
	Short: "Generate a hash for a bearer key",
	Long: `Generate a hash of a bearer key for use in the auth.keys config.

By default the output is "sha256:<hex>". With --argon2id the output is
an Argon2id PHC string, which is slower to verify but resistant to
offline brute force if the config file leaks.

Example:
  fearvana-gate hash-key "my-secret-key"
  # Output: sha256:7d5e8c...

Security note: the key will appear in shell history.
Consider clearing history after use or using an environment variable:
  fearvana-gate hash-key "$MY_KEY"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		if useArgon2id {
			hash, err := auth.HashKeyArgon2id(key)
			if err != nil {
				return fmt.Errorf("failed to hash key: %w", err)
			}
			fmt.Println(hash)
			return nil
		}
		fmt.Println("sha256:" + auth.HashKey(key))
		return nil
	},
}

func init() {
	hashKeyCmd.Flags().BoolVar(&useArgon2id, "argon2id", false, "Output an Argon2id PHC hash instead of sha256")
	rootCmd.AddCommand(hashKeyCmd)
}
