package config

import (
	"os"
	"sort"
	"strings"

	dserrors "github.com/systmms/azadapter/internal/errors"
	"github.com/systmms/azadapter/internal/logging"
	"gopkg.in/yaml.v3"
)

// Media type names accepted in a profile.
const (
	MediaXML  = "xml"
	MediaJSON = "json"
)

// Config holds the runtime configuration
type Config struct {
	Path    string
	Logger  *logging.Logger
	Profile *Profile
}

// Profile is the connection profile file
type Profile struct {
	Version    int               `yaml:"version"`
	Endpoint   EndpointConfig    `yaml:"endpoint"`
	Settings   map[string]string `yaml:"settings,omitempty"`
	Proxy      *ProxyConfig      `yaml:"proxy,omitempty"`
	Credential *CredentialConfig `yaml:"credential,omitempty"`
}

// EndpointConfig describes where and how requests are sent
type EndpointConfig struct {
	Address      string `yaml:"address,omitempty"`
	Subscription string `yaml:"subscription"`
	Version      string `yaml:"version,omitempty"`
	Namespace    string `yaml:"namespace"`
	MediaType    string `yaml:"mediaType,omitempty"` // xml (default) or json
}

// ProxyConfig describes an outbound HTTP proxy
type ProxyConfig struct {
	Scheme   string `yaml:"scheme,omitempty"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// CredentialConfig points at a PKCS#12 management certificate on disk. The
// password is read from the named environment variable so it never lives in
// the file.
type CredentialConfig struct {
	CertificateFile string `yaml:"certificateFile"`
	PasswordEnv     string `yaml:"passwordEnv"`
}

// Load reads and parses the profile file
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "profile file not found",
				Suggestion: "Check the path passed to LoadProfile",
				Err:        err,
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read profile file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	profile, err := Parse(data)
	if err != nil {
		return err
	}

	if c.Logger != nil {
		c.Logger.Debug("loaded profile %s for subscription %s", c.Path, profile.Endpoint.Subscription)
	}
	c.Profile = profile
	return nil
}

// Parse decodes and validates a profile document
func Parse(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, dserrors.ConfigError{
			Message:    "invalid YAML syntax in profile",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
			Err:        err,
		}
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the profile for values that can never work
func (p *Profile) Validate() error {
	if p.Version != 0 {
		return dserrors.ConfigError{
			Field:      "version",
			Value:      p.Version,
			Message:    "unsupported profile version",
			Suggestion: "Set 'version: 0' at the top of the profile",
		}
	}

	switch strings.ToLower(p.Endpoint.MediaType) {
	case "", MediaXML, MediaJSON:
	default:
		return dserrors.ConfigError{
			Field:      "endpoint.mediaType",
			Value:      p.Endpoint.MediaType,
			Message:    "unknown media type",
			Suggestion: "Use 'xml' or 'json'",
		}
	}

	if strings.TrimSpace(p.Endpoint.Namespace) == "" {
		return dserrors.ConfigError{
			Field:      "endpoint.namespace",
			Message:    "a default schema namespace is required",
			Suggestion: "Set the namespace the payload types were registered under",
		}
	}

	if p.Proxy != nil {
		if strings.TrimSpace(p.Proxy.Host) == "" {
			return dserrors.ConfigError{
				Field:   "proxy.host",
				Message: "proxy host is required when a proxy section is present",
			}
		}
		if p.Proxy.Port <= 0 || p.Proxy.Port > 65535 {
			return dserrors.ConfigError{
				Field:      "proxy.port",
				Value:      p.Proxy.Port,
				Message:    "proxy port out of range",
				Suggestion: "Use a port between 1 and 65535",
			}
		}
	}

	if p.Credential != nil && strings.TrimSpace(p.Credential.CertificateFile) == "" {
		return dserrors.ConfigError{
			Field:   "credential.certificateFile",
			Message: "certificate file is required when a credential section is present",
		}
	}

	return nil
}

// SettingKeys returns the settings keys in sorted order
func (p *Profile) SettingKeys() []string {
	keys := make([]string, 0, len(p.Settings))
	for k := range p.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
