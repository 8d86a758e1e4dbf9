package credstore

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/zalando/go-keyring"

	dserrors "github.com/systmms/azadapter/internal/errors"
	"github.com/systmms/azadapter/internal/logging"
	"github.com/systmms/azadapter/pkg/azure"
)

// DefaultKeyringService is the keyring service name used when none is given.
const DefaultKeyringService = "azadapter"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// keyringEntry is the stored form of a credential.
type keyringEntry struct {
	Certificate []byte `json:"certificate"`
	PrivateKey  string `json:"privateKey"`
}

// Keyring keeps credentials in the OS keyring (macOS Keychain, Secret
// Service, Windows Credential Manager), one entry per account.
type Keyring struct {
	service string
	logger  *logging.Logger
}

// KeyringOption configures a Keyring.
type KeyringOption func(*Keyring)

// WithKeyringLogger sets the logger.
func WithKeyringLogger(l *logging.Logger) KeyringOption {
	return func(k *Keyring) {
		k.logger = l
	}
}

// NewKeyring returns a keyring store under service.
func NewKeyring(service string, opts ...KeyringOption) *Keyring {
	if service == "" {
		service = DefaultKeyringService
	}
	k := &Keyring{service: service, logger: logging.Discard()}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Store saves cred under account, replacing any previous entry.
func (k *Keyring) Store(account string, cred *azure.Credential) error {
	if !cred.Usable() {
		return dserrors.ConfigError{
			Field:   "credential",
			Message: "refusing to store a credential without certificate and password",
		}
	}

	data, err := json.Marshal(keyringEntry{Certificate: cred.Certificate, PrivateKey: cred.PrivateKey})
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	if err := keyring.Set(k.service, account, string(data)); err != nil {
		return keyringError("store", account, err)
	}
	k.logger.Debug("stored credential for %s in keyring %s", logging.Secret(account), k.service)
	return nil
}

// Load returns the credential stored under account, or nil when there is
// none.
func (k *Keyring) Load(account string) (*azure.Credential, error) {
	data, err := keyring.Get(k.service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, keyringError("load", account, err)
	}

	var entry keyringEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		return nil, dserrors.UserError{
			Message:    "Keyring entry is not a credential",
			Details:    err.Error(),
			Suggestion: fmt.Sprintf("Delete the %s entry for this account and store it again", k.service),
			Err:        err,
		}
	}

	cred := &azure.Credential{Certificate: entry.Certificate, PrivateKey: entry.PrivateKey}
	if !cred.Usable() {
		return nil, nil
	}
	k.logger.Object("keyring credential", cred)
	return cred, nil
}

// Delete removes the entry for account. Deleting a missing entry is not
// an error.
func (k *Keyring) Delete(account string) error {
	if err := keyring.Delete(k.service, account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return keyringError("delete", account, err)
	}
	return nil
}

func keyringError(op, account string, err error) error {
	suggestion := "Check that a keyring service is running and unlocked"
	if errors.Is(err, keyring.ErrSetDataTooBig) {
		suggestion = "The certificate is too large for this keyring; use Key Vault instead"
	}
	return dserrors.UserError{
		Message:    fmt.Sprintf("Failed to %s keyring credential for %s", op, account),
		Details:    err.Error(),
		Suggestion: suggestion,
		Err:        err,
	}
}
