package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/systmms/azadapter/internal/config"
	dserrors "github.com/systmms/azadapter/internal/errors"
	"github.com/systmms/azadapter/pkg/sharedkey"
)

func NewSignCommand(cfg *config.Config) *cobra.Command {
	var (
		account string
		keyEnv  string
	)

	cmd := &cobra.Command{
		Use:   "sign [string-to-sign]",
		Short: "Compute a SharedKey Authorization header value",
		Long: `Compute the SharedKey Authorization value for a string-to-sign.

The string is taken from the argument, or from stdin when no argument is
given. The base64 account key is read from an environment variable.

Example:
  printf 'GET\n\n\n\n\n\n\n\n\n\n\n\nx-ms-date:...\n/account/\ncomp:list' |
    AZURE_STORAGE_KEY=... azadapter sign --account account`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var stringToSign string
			if len(args) == 1 {
				stringToSign = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read string-to-sign: %w", err)
				}
				stringToSign = strings.TrimSuffix(string(data), "\n")
			}

			auth, err := sharedkey.AuthorizationWithLogger(cfg.Logger, stringToSign, os.Getenv(keyEnv), account)
			if err != nil {
				return err
			}
			if auth == "" {
				return dserrors.UserError{
					Message:    "Nothing to sign",
					Suggestion: fmt.Sprintf("Provide --account, a string-to-sign and the key in $%s", keyEnv),
				}
			}

			cfg.Logger.Debug("signed %d bytes for %s", len(stringToSign), account)
			fmt.Fprintln(cmd.OutOrStdout(), auth)
			return nil
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "Storage account name")
	cmd.Flags().StringVar(&keyEnv, "key-env", "AZURE_STORAGE_KEY", "Environment variable holding the base64 account key")

	return cmd
}
