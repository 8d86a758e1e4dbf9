package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/systmms/azadapter/internal/config"
	dserrors "github.com/systmms/azadapter/internal/errors"
	"github.com/systmms/azadapter/internal/logging"
	"github.com/systmms/azadapter/pkg/azure"
	"github.com/systmms/azadapter/pkg/credstore"
)

// NewCredentialCommand groups the keyring and Key Vault credential commands.
func NewCredentialCommand(cfg *config.Config) *cobra.Command {
	var service string

	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage management certificates in the OS keyring",
	}
	cmd.PersistentFlags().StringVar(&service, "service", credstore.DefaultKeyringService, "Keyring service name")

	keyring := func() *credstore.Keyring {
		return credstore.NewKeyring(service, credstore.WithKeyringLogger(cfg.Logger))
	}

	cmd.AddCommand(
		newCredentialStoreCommand(keyring),
		newCredentialShowCommand(keyring),
		newCredentialDeleteCommand(keyring),
		newCredentialVaultCommand(cfg, keyring),
	)
	return cmd
}

func newCredentialStoreCommand(keyring func() *credstore.Keyring) *cobra.Command {
	var (
		certificateFile string
		passwordEnv     string
	)

	cmd := &cobra.Command{
		Use:   "store <account>",
		Short: "Store a PKCS#12 management certificate in the keyring",
		Long: `Store a PKCS#12 management certificate and its password in the OS keyring.

The password is read from an environment variable so it never appears in the
shell history.

Example:
  CERT_PASSWORD=... azadapter credential store my-subscription \
    --certificate management.p12 --password-env CERT_PASSWORD`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := os.ReadFile(certificateFile)
			if err != nil {
				return dserrors.ConfigError{
					Field:      "certificate",
					Value:      certificateFile,
					Message:    "unable to read certificate",
					Suggestion: "Check the certificate path and its permissions",
					Err:        err,
				}
			}

			password := os.Getenv(passwordEnv)
			if password == "" {
				return dserrors.UserError{
					Message:    fmt.Sprintf("Environment variable %s is empty", passwordEnv),
					Suggestion: "Export the certificate password before storing it",
				}
			}

			if err := keyring().Store(args[0], &azure.Credential{Certificate: cert, PrivateKey: password}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored credential for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&certificateFile, "certificate", "", "PKCS#12 certificate file (required)")
	cmd.Flags().StringVar(&passwordEnv, "password-env", "AZADAPTER_CERT_PASSWORD", "Environment variable holding the certificate password")
	_ = cmd.MarkFlagRequired("certificate")

	return cmd
}

func newCredentialShowCommand(keyring func() *credstore.Keyring) *cobra.Command {
	return &cobra.Command{
		Use:   "show <account>",
		Short: "Describe the stored credential with the password masked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cred, err := keyring().Load(args[0])
			if err != nil {
				return err
			}
			if cred == nil {
				return notStored(args[0])
			}
			fmt.Fprint(cmd.OutOrStdout(), logging.Describe(args[0], cred, false))
			return nil
		},
	}
}

func newCredentialDeleteCommand(keyring func() *credstore.Keyring) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account>",
		Short: "Remove the stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := keyring().Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted credential for %s\n", args[0])
			return nil
		},
	}
}

func newCredentialVaultCommand(cfg *config.Config, keyring func() *credstore.Keyring) *cobra.Command {
	var (
		vaultURL          string
		certificateSecret string
		passwordSecret    string
	)

	cmd := &cobra.Command{
		Use:   "import-vault <account>",
		Short: "Copy a management certificate from Azure Key Vault into the keyring",
		Long: `Read a management certificate and its password from two Azure Key Vault
secrets and store them in the OS keyring under <account>.

Authentication uses the Azure default credential chain (environment, managed
identity, Azure CLI).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vault, err := credstore.NewKeyVault(vaultURL, certificateSecret, passwordSecret,
				credstore.WithKeyVaultLogger(cfg.Logger))
			if err != nil {
				return err
			}

			cred, err := vault.Load(cmd.Context())
			if err != nil {
				return err
			}
			if cred == nil {
				return dserrors.UserError{
					Message:    fmt.Sprintf("No enabled secrets %s and %s in %s", certificateSecret, passwordSecret, vaultURL),
					Suggestion: "Check the secret names and that both secrets are enabled",
				}
			}

			if err := keyring().Store(args[0], cred); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported credential for %s from %s\n", args[0], vaultURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&vaultURL, "vault-url", "", "Key Vault URL (required)")
	cmd.Flags().StringVar(&certificateSecret, "certificate-secret", "management-certificate", "Secret holding the base64 PKCS#12 certificate")
	cmd.Flags().StringVar(&passwordSecret, "password-secret", "management-certificate-password", "Secret holding the certificate password")
	_ = cmd.MarkFlagRequired("vault-url")

	return cmd
}

func notStored(account string) error {
	return dserrors.UserError{
		Message:    fmt.Sprintf("No credential stored for %s", account),
		Suggestion: fmt.Sprintf("Run 'azadapter credential store %s --certificate <file>'", account),
	}
}
