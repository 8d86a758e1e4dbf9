package azure

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	dserrors "github.com/systmms/azadapter/internal/errors"
	"github.com/systmms/azadapter/internal/logging"
	"github.com/systmms/azadapter/internal/metrics"
	"github.com/systmms/azadapter/pkg/canonical"
	"github.com/systmms/azadapter/pkg/sharedkey"
)

const (
	moduleName    = "azadapter"
	moduleVersion = "v0.1.0"
)

// Connection sends management requests for one Endpoint. It keeps no
// per-request state and is safe for concurrent use.
type Connection struct {
	endpoint *Endpoint
	settings Settings
	pipeline runtime.Pipeline

	logger  *logging.Logger
	metrics *metrics.Metrics
}

type connectionOptions struct {
	transport policy.Transporter
	signer    *sharedkey.Policy
	logger    *logging.Logger
	metrics   *metrics.Metrics
}

// ConnectionOption configures a Connection.
type ConnectionOption func(*connectionOptions)

// WithTransport replaces the certificate-authenticated HTTP client.
func WithTransport(t policy.Transporter) ConnectionOption {
	return func(o *connectionOptions) {
		o.transport = t
	}
}

// WithSharedKey signs every attempt with p.
func WithSharedKey(p *sharedkey.Policy) ConnectionOption {
	return func(o *connectionOptions) {
		o.signer = p
	}
}

// WithLogger sets the connection logger.
func WithLogger(l *logging.Logger) ConnectionOption {
	return func(o *connectionOptions) {
		o.logger = l
	}
}

// WithMetrics records requests in m instead of the default collectors.
func WithMetrics(m *metrics.Metrics) ConnectionOption {
	return func(o *connectionOptions) {
		o.metrics = m
	}
}

// NewConnection opens cred's PKCS#12 certificate and returns a connection
// to endpoint. settings override DefaultSettings; proxy may be nil.
func NewConnection(settings []Property, cred *Credential, proxy *Proxy, endpoint *Endpoint, opts ...ConnectionOption) (*Connection, error) {
	if endpoint == nil {
		return nil, &AdapterError{Message: "endpoint is required"}
	}
	s, err := ParseSettings(settings)
	if err != nil {
		return nil, err
	}

	if cred == nil || len(cred.Certificate) == 0 {
		return nil, dserrors.ConfigError{
			Field:      PropertyCertificate,
			Message:    "no certificate",
			Suggestion: "Attach a management certificate to the service provider or its cloud",
		}
	}
	if cred.PrivateKey == "" {
		return nil, dserrors.ConfigError{
			Field:      PropertyPrivateKey,
			Message:    "no certificate password",
			Suggestion: "Set the password that opens the management certificate",
		}
	}

	cert, err := loadCertificate(cred)
	if err != nil {
		return nil, err
	}
	return newConnection(s, cert, proxy, endpoint, opts...), nil
}

// NewConnectionFromCredentials connects with the first credential that
// carries a certificate.
func NewConnectionFromCredentials(settings []Property, creds []Credential, proxy *Proxy, endpoint *Endpoint, opts ...ConnectionOption) (*Connection, error) {
	return NewConnection(settings, FirstUsableCredential(creds), proxy, endpoint, opts...)
}

func loadCertificate(cred *Credential) (*tls.Certificate, error) {
	certs, key, err := azidentity.ParseCertificates(cred.Certificate, []byte(cred.PrivateKey))
	if err != nil {
		return nil, dserrors.UserError{
			Message:    "Certificate/secret password error",
			Details:    err.Error(),
			Suggestion: "Check that the certificate is PKCS#12 and the password opens it",
			Err:        err,
		}
	}
	if len(certs) == 0 || key == nil {
		return nil, dserrors.UserError{
			Message:    "Certificate/secret password error",
			Details:    "the certificate holds no certificate and private key pair",
			Suggestion: "Export the management certificate together with its private key",
		}
	}

	cert := &tls.Certificate{PrivateKey: key, Leaf: certs[0]}
	for _, c := range certs {
		cert.Certificate = append(cert.Certificate, c.Raw)
	}
	return cert, nil
}

func newConnection(s Settings, cert *tls.Certificate, proxy *Proxy, endpoint *Endpoint, opts ...ConnectionOption) *Connection {
	o := connectionOptions{
		logger:  logging.Discard(),
		metrics: metrics.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.transport == nil {
		o.transport = newHTTPClient(s, proxy, cert)
	}

	var perRetry []policy.Policy
	if o.signer != nil {
		perRetry = append(perRetry, o.signer)
	}

	retries := int32(s.HTTPRetries)
	if retries == 0 {
		retries = -1
	}

	pl := runtime.NewPipeline(moduleName, moduleVersion, runtime.PipelineOptions{PerRetry: perRetry}, &policy.ClientOptions{
		Transport: o.transport,
		Retry:     policy.RetryOptions{MaxRetries: retries},
	})

	return &Connection{
		endpoint: endpoint,
		settings: s,
		pipeline: pl,
		logger:   o.logger,
		metrics:  o.metrics,
	}
}

// Endpoint returns the connection's endpoint.
func (c *Connection) Endpoint() *Endpoint { return c.endpoint }

// Settings returns the tunables the connection was built with.
func (c *Connection) Settings() Settings { return c.settings }

// URI returns the full request URI for path and params.
func (c *Connection) URI(path string, params *canonical.QueryParams) string {
	var b strings.Builder
	b.WriteString(c.endpoint.Address())
	b.WriteString(c.endpoint.Subscription())
	if path != "" {
		if !strings.HasPrefix(path, "/") {
			b.WriteByte('/')
		}
		b.WriteString(path)
	}
	b.WriteString(params.QueryString())
	return b.String()
}

// Get sends a GET and returns the raw response.
func (c *Connection) Get(path string, params *canonical.QueryParams) *Future[*http.Response] {
	return GetAs[*http.Response](c, path, params)
}

// Post sends body with a POST and returns the raw response.
func (c *Connection) Post(path string, body any) *Future[*http.Response] {
	return PostAs[*http.Response](c, path, body)
}

// Put sends body with a PUT and returns the raw response.
func (c *Connection) Put(path string, body any) *Future[*http.Response] {
	return PutAs[*http.Response](c, path, body)
}

// Delete sends a DELETE and returns the raw response.
func (c *Connection) Delete(path string) *Future[*http.Response] {
	return submit[*http.Response](c, http.MethodDelete, path, nil, nil)
}

// GetAs sends a GET and decodes the response into T.
func GetAs[T any](c *Connection, path string, params *canonical.QueryParams) *Future[T] {
	return submit[T](c, http.MethodGet, path, params, nil)
}

// PostAs sends body with a POST and decodes the response into T.
func PostAs[T any](c *Connection, path string, body any) *Future[T] {
	return submit[T](c, http.MethodPost, path, nil, body)
}

// PutAs sends body with a PUT and decodes the response into T.
func PutAs[T any](c *Connection, path string, body any) *Future[T] {
	return submit[T](c, http.MethodPut, path, nil, body)
}

// submit builds the request on the calling goroutine and runs the exchange
// and decode on a new one.
func submit[T any](c *Connection, method, path string, params *canonical.QueryParams, body any) *Future[T] {
	uri := c.URI(path, params)

	req, err := c.buildRequest(method, uri, body)
	if err != nil {
		c.logger.Debug("unable to build %s %s: %v", method, uri, err)
		c.metrics.RecordRequest(method, metrics.OutcomeFailure, 0)
		return Failed[T](&RequestError{Method: method, URI: uri, Err: err})
	}

	f := newFuture[T]()
	go func() {
		start := time.Now()
		v, err := exchange[T](c, req, method, uri)
		if err != nil {
			c.logger.Debug("%s %s: %v", method, uri, err)
		}
		c.metrics.RecordRequest(method, outcomeOf(err).String(), time.Since(start))
		f.complete(v, err)
	}()
	return f
}

func exchange[T any](c *Connection, req *policy.Request, method, uri string) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RequestError{Method: method, URI: uri, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	resp, err := c.pipeline.Do(req)
	if err != nil {
		return v, &TransportError{Method: method, URI: uri, Err: err}
	}
	c.logger.Debug("%s %s -> %d", method, uri, resp.StatusCode)
	return Decode[T](c.endpoint, resp)
}

// buildRequest is newRequest with a panic, such as one from a body's custom
// marshaler, returned as an error.
func (c *Connection) buildRequest(method, uri string, body any) (req *policy.Request, err error) {
	defer func() {
		if r := recover(); r != nil {
			req, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return c.newRequest(method, uri, body)
}

func (c *Connection) newRequest(method, uri string, body any) (*policy.Request, error) {
	req, err := runtime.NewRequest(context.Background(), method, uri)
	if err != nil {
		return nil, err
	}

	h := req.Raw().Header
	if v := c.endpoint.Version(); v != "" {
		h.Set("x-ms-version", v)
	}
	h.Set("Accept", c.endpoint.ContentType())

	switch b := body.(type) {
	case nil:
	case string:
		err = req.SetBody(streaming.NopCloser(strings.NewReader(b)), "")
	case []byte:
		err = req.SetBody(streaming.NopCloser(bytes.NewReader(b)), "")
	default:
		encoded, encErr := c.endpoint.Encode(b)
		if encErr != nil {
			return nil, encErr
		}
		err = req.SetBody(streaming.NopCloser(strings.NewReader(encoded)), c.endpoint.ContentType())
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}
