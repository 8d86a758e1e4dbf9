package azure

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/systmms/azadapter/internal/logging"
	"github.com/systmms/azadapter/pkg/schema"
)

// MediaType is the wire encoding of request and response bodies.
type MediaType string

const (
	MediaXML  MediaType = "application/xml"
	MediaJSON MediaType = "application/json"
)

// DefaultAddress is the public Service Management endpoint.
const DefaultAddress = "https://management.core.windows.net/"

// ParseMediaType maps a profile value (xml, json or a full media type) to a
// MediaType. Empty selects XML.
func ParseMediaType(s string) (MediaType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "xml", string(MediaXML):
		return MediaXML, nil
	case "json", string(MediaJSON):
		return MediaJSON, nil
	default:
		return "", fmt.Errorf("unsupported media type %q", s)
	}
}

// Endpoint is the immutable description of one management service: where
// requests go and how their bodies are encoded and decoded.
type Endpoint struct {
	address      string
	subscription string
	version      string
	media        MediaType

	namespace string
	registry  *schema.Registry
	context   *schema.Context
	errorType reflect.Type

	logger *logging.Logger
}

// EndpointOption configures an Endpoint.
type EndpointOption func(*Endpoint)

// WithAddress overrides DefaultAddress.
func WithAddress(address string) EndpointOption {
	return func(e *Endpoint) {
		e.address = address
	}
}

// WithMediaType selects the body encoding.
func WithMediaType(m MediaType) EndpointOption {
	return func(e *Endpoint) {
		e.media = m
	}
}

// WithEndpointLogger sets the logger used for codec diagnostics.
func WithEndpointLogger(l *logging.Logger) EndpointOption {
	return func(e *Endpoint) {
		e.logger = l
	}
}

// NewEndpoint creates an endpoint whose payload types live in namespace and
// whose provider errors decode into E. It fails when the namespace cannot
// be loaded from registry or E is not registered there.
func NewEndpoint[E any](registry *schema.Registry, subscription, version, namespace string, opts ...EndpointOption) (*Endpoint, error) {
	if registry == nil {
		return nil, &AdapterError{Message: "schema registry is required"}
	}

	e := &Endpoint{
		address:      DefaultAddress,
		subscription: subscription,
		version:      version,
		media:        MediaXML,
		namespace:    namespace,
		registry:     registry,
		errorType:    reflect.TypeFor[E](),
		logger:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.media != MediaXML && e.media != MediaJSON {
		return nil, &AdapterError{Message: fmt.Sprintf("unsupported media type %q", e.media)}
	}

	ctx, err := registry.Get(namespace)
	if err != nil {
		return nil, &AdapterError{Message: "unable to create schema context for " + namespace, Err: err}
	}
	if err := ctx.Check(e.errorType); err != nil {
		return nil, &AdapterError{Message: "error type is not part of the default namespace", Err: err}
	}
	e.context = ctx

	return e, nil
}

// Address returns the base address.
func (e *Endpoint) Address() string { return e.address }

// Subscription returns the subscription id.
func (e *Endpoint) Subscription() string { return e.subscription }

// Version returns the x-ms-version value.
func (e *Endpoint) Version() string { return e.version }

// MediaType returns the body encoding.
func (e *Endpoint) MediaType() MediaType { return e.media }

// ContentType returns the value used for Accept and Content-Type headers.
func (e *Endpoint) ContentType() string { return string(e.media) }

// Namespace returns the default schema namespace.
func (e *Endpoint) Namespace() string { return e.namespace }

// Context returns the default schema context.
func (e *Endpoint) Context() *schema.Context { return e.context }

// ErrorType returns the provider error payload type.
func (e *Endpoint) ErrorType() reflect.Type { return e.errorType }

// ContextFor returns the schema context for namespace. An empty namespace
// or the default one returns the endpoint's own context without touching
// the registry.
func (e *Endpoint) ContextFor(namespace string) (*schema.Context, error) {
	if namespace == "" || namespace == e.namespace {
		return e.context, nil
	}
	ctx, err := e.registry.Get(namespace)
	if err != nil {
		return nil, &AdapterError{Message: "no context for namespace " + namespace, Err: err}
	}
	return ctx, nil
}

// Describe implements logging.Describer.
func (e *Endpoint) Describe() []logging.Field {
	if e == nil {
		return nil
	}
	return []logging.Field{
		{Name: "Address", Value: e.address},
		{Name: "Subscription", Value: e.subscription},
		{Name: "Version", Value: e.version},
		{Name: "MediaType", Value: e.media},
		{Name: "Namespace", Value: e.namespace},
		{Name: "ErrorType", Value: e.errorType},
	}
}
