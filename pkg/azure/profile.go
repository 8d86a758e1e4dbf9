package azure

import (
	"os"

	"github.com/systmms/azadapter/internal/config"
	dserrors "github.com/systmms/azadapter/internal/errors"
	"github.com/systmms/azadapter/internal/logging"
	"github.com/systmms/azadapter/pkg/schema"
)

// Profile is a connection profile file turned into adapter values.
type Profile struct {
	Endpoint *Endpoint
	Settings []Property
	Proxy    *Proxy

	// Credential is set when the file names a certificate.
	Credential *Credential
}

// LoadProfile reads the YAML profile at path and builds its endpoint with
// error type E. Settings are validated here so a bad value fails before
// any connection is attempted.
func LoadProfile[E any](path string, registry *schema.Registry, logger *logging.Logger) (*Profile, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	cfg := &config.Config{Path: path, Logger: logger}
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	file := cfg.Profile

	props := PropertiesFromMap(file.Settings)
	if _, err := ParseSettings(props); err != nil {
		return nil, err
	}

	media, err := ParseMediaType(file.Endpoint.MediaType)
	if err != nil {
		return nil, dserrors.ConfigError{Field: "endpoint.mediaType", Value: file.Endpoint.MediaType, Message: err.Error()}
	}

	opts := []EndpointOption{WithMediaType(media), WithEndpointLogger(logger)}
	if file.Endpoint.Address != "" {
		opts = append(opts, WithAddress(file.Endpoint.Address))
	}
	endpoint, err := NewEndpoint[E](registry, file.Endpoint.Subscription, file.Endpoint.Version, file.Endpoint.Namespace, opts...)
	if err != nil {
		return nil, err
	}

	p := &Profile{Endpoint: endpoint, Settings: props}
	if file.Proxy != nil {
		p.Proxy = &Proxy{
			Scheme:   file.Proxy.Scheme,
			Host:     file.Proxy.Host,
			Port:     file.Proxy.Port,
			Username: file.Proxy.Username,
			Password: file.Proxy.Password,
		}
	}

	if file.Credential != nil {
		cert, err := os.ReadFile(file.Credential.CertificateFile)
		if err != nil {
			return nil, dserrors.ConfigError{
				Field:      "credential.certificateFile",
				Value:      file.Credential.CertificateFile,
				Message:    "unable to read certificate",
				Suggestion: "Check the certificate path and its permissions",
				Err:        err,
			}
		}
		p.Credential = &Credential{Certificate: cert}
		if file.Credential.PasswordEnv != "" {
			p.Credential.PrivateKey = os.Getenv(file.Credential.PasswordEnv)
		}
	}

	logger.Object("profile endpoint", endpoint)
	return p, nil
}

// Connect opens a connection with the profile's own credential.
func (p *Profile) Connect(opts ...ConnectionOption) (*Connection, error) {
	return p.ConnectWith(p.Credential, opts...)
}

// ConnectWith opens a connection with cred, for callers that resolve the
// credential elsewhere.
func (p *Profile) ConnectWith(cred *Credential, opts ...ConnectionOption) (*Connection, error) {
	return NewConnection(p.Settings, cred, p.Proxy, p.Endpoint, opts...)
}
