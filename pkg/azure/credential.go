package azure

import (
	"fmt"

	"github.com/systmms/azadapter/internal/logging"
)

// Property names consulted during resolution.
const (
	PropertySubscription = "subscription"
	PropertyCertificate  = "certificate"
	PropertyPrivateKey   = "private-key"
)

// Credential is a management certificate and the password (or private
// key) that opens it.
type Credential struct {
	Certificate []byte
	PrivateKey  string
}

// Usable reports whether both parts are present.
func (c *Credential) Usable() bool {
	return c != nil && len(c.Certificate) > 0 && c.PrivateKey != ""
}

// Describe implements logging.Describer. The private key is masked.
func (c *Credential) Describe() []logging.Field {
	if c == nil {
		return nil
	}
	return []logging.Field{
		{Name: "Certificate", Value: fmt.Sprintf("%d bytes", len(c.Certificate))},
		{Name: "PrivateKey", Value: c.PrivateKey, Sensitive: true},
	}
}

// AssetProperty is a named value attached to a platform object. Only one
// of the value fields is normally set.
type AssetProperty struct {
	Name        string
	StringValue string
	ByteValue   []byte
	IntValue    int
}

// Link references another platform object by id.
type Link struct {
	ID   int
	Type string
}

// ServiceProvider is the platform's description of a management service.
type ServiceProvider struct {
	Credentials *Credential
	Properties  []AssetProperty
	Cloud       *Link
}

// Cloud is a platform cloud definition that a service provider may point
// to for its defaults.
type Cloud struct {
	ID               int
	Subscription     string
	CloudCredentials *Credential
}

// ResolveCredential picks the first usable credential from the provider
// itself, its certificate and private-key properties, or its linked cloud.
// It returns nil when none is usable.
func ResolveCredential(provider *ServiceProvider, clouds []Cloud) *Credential {
	if provider == nil {
		return nil
	}
	if provider.Credentials.Usable() {
		return provider.Credentials
	}

	cert := findProperty(provider.Properties, PropertyCertificate)
	key := findProperty(provider.Properties, PropertyPrivateKey)
	if cert != nil && key != nil {
		c := &Credential{Certificate: cert.ByteValue, PrivateKey: key.StringValue}
		if c.Usable() {
			return c
		}
	}

	if cloud := linkedCloud(provider, clouds); cloud != nil && cloud.CloudCredentials.Usable() {
		return cloud.CloudCredentials
	}
	return nil
}

// ResolveSubscription returns the provider's subscription property, else
// the linked cloud's subscription, else "".
func ResolveSubscription(provider *ServiceProvider, clouds []Cloud) string {
	if provider == nil {
		return ""
	}
	if p := findProperty(provider.Properties, PropertySubscription); p != nil && p.StringValue != "" {
		return p.StringValue
	}
	if cloud := linkedCloud(provider, clouds); cloud != nil {
		return cloud.Subscription
	}
	return ""
}

// FirstUsableCredential returns the first credential that carries a
// certificate.
func FirstUsableCredential(creds []Credential) *Credential {
	for i := range creds {
		if len(creds[i].Certificate) > 0 {
			return &creds[i]
		}
	}
	return nil
}

func findProperty(props []AssetProperty, name string) *AssetProperty {
	for i := range props {
		if props[i].Name == name {
			return &props[i]
		}
	}
	return nil
}

// linkedCloud returns the first cloud whose id matches the provider's link.
func linkedCloud(provider *ServiceProvider, clouds []Cloud) *Cloud {
	if provider.Cloud == nil {
		return nil
	}
	for i := range clouds {
		if clouds[i].ID == provider.Cloud.ID {
			return &clouds[i]
		}
	}
	return nil
}
