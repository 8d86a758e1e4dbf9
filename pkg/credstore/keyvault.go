package credstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	dserrors "github.com/systmms/azadapter/internal/errors"
	"github.com/systmms/azadapter/internal/logging"
	"github.com/systmms/azadapter/pkg/azure"
)

// SecretsClient is the part of *azsecrets.Client that KeyVault uses.
type SecretsClient interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// KeyVault reads a management certificate and its password from two Key
// Vault secrets. The certificate secret holds the base64 PKCS#12 bundle,
// which is how Key Vault exposes an imported certificate.
type KeyVault struct {
	client            SecretsClient
	vaultURL          string
	certificateSecret string
	passwordSecret    string
	logger            *logging.Logger
}

// KeyVaultOption configures a KeyVault.
type KeyVaultOption func(*KeyVault)

// WithSecretsClient sets the client used to read secrets (for testing).
func WithSecretsClient(c SecretsClient) KeyVaultOption {
	return func(k *KeyVault) {
		k.client = c
	}
}

// WithKeyVaultLogger sets the logger.
func WithKeyVaultLogger(l *logging.Logger) KeyVaultOption {
	return func(k *KeyVault) {
		k.logger = l
	}
}

// NewKeyVault returns a Key Vault source. Without WithSecretsClient it
// authenticates with azidentity's default credential chain.
func NewKeyVault(vaultURL, certificateSecret, passwordSecret string, opts ...KeyVaultOption) (*KeyVault, error) {
	if vaultURL == "" {
		return nil, dserrors.ConfigError{
			Field:      "vault_url",
			Message:    "vault_url is required for Azure Key Vault",
			Suggestion: "Provide the Key Vault URL (e.g., https://my-vault.vault.azure.net/)",
		}
	}
	if u, err := url.Parse(vaultURL); err != nil || u.Scheme != "https" || u.Host == "" {
		return nil, dserrors.ConfigError{
			Field:      "vault_url",
			Value:      vaultURL,
			Message:    "Invalid vault_url format",
			Suggestion: "Use format: https://vault-name.vault.azure.net/",
		}
	}
	if certificateSecret == "" || passwordSecret == "" {
		return nil, dserrors.ConfigError{
			Field:   "secret",
			Message: "both the certificate and the password secret names are required",
		}
	}

	k := &KeyVault{
		vaultURL:          vaultURL,
		certificateSecret: certificateSecret,
		passwordSecret:    passwordSecret,
		logger:            logging.Discard(),
	}
	for _, opt := range opts {
		opt(k)
	}

	if k.client == nil {
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Azure credential: %w", err)
		}
		client, err := azsecrets.NewClient(vaultURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
		}
		k.client = client
	}
	return k, nil
}

// Load fetches the credential. It returns nil when either secret is
// missing, disabled or empty.
func (k *KeyVault) Load(ctx context.Context) (*azure.Credential, error) {
	encoded, err := k.secret(ctx, k.certificateSecret)
	if err != nil || encoded == "" {
		return nil, err
	}
	password, err := k.secret(ctx, k.passwordSecret)
	if err != nil || password == "" {
		return nil, err
	}

	cert, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, dserrors.UserError{
			Message:    fmt.Sprintf("Secret %s is not a base64 certificate", k.certificateSecret),
			Details:    err.Error(),
			Suggestion: "Import the management certificate into Key Vault as a PKCS#12 certificate",
			Err:        err,
		}
	}

	cred := &azure.Credential{Certificate: cert, PrivateKey: password}
	k.logger.Object("key vault credential", cred)
	return cred, nil
}

// secret returns the value of name, or "" when it does not exist or is
// disabled.
func (k *KeyVault) secret(ctx context.Context, name string) (string, error) {
	k.logger.Debug("Accessing Azure Key Vault secret: %s", logging.Secret(name))

	resp, err := k.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", dserrors.UserError{
			Message:    fmt.Sprintf("Failed to access secret: %s", name),
			Details:    err.Error(),
			Suggestion: "Check that the identity may read secrets in " + k.vaultURL,
			Err:        err,
		}
	}

	if resp.Attributes != nil && resp.Attributes.Enabled != nil && !*resp.Attributes.Enabled {
		k.logger.Warn("Key Vault secret %s is disabled", name)
		return "", nil
	}
	if resp.Value == nil {
		return "", nil
	}
	return *resp.Value, nil
}
