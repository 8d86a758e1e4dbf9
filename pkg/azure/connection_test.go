package azure_test

import (
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/systmms/azadapter/internal/errors"
	"github.com/systmms/azadapter/internal/metrics"
	"github.com/systmms/azadapter/pkg/azure"
	"github.com/systmms/azadapter/pkg/canonical"
	"github.com/systmms/azadapter/pkg/schema"
	"github.com/systmms/azadapter/pkg/sharedkey"
)

var noRetries = []azure.Property{{Name: azure.SettingHTTPRetries, Value: "0"}}

type transportFunc func(*http.Request) (*http.Response, error)

func (f transportFunc) Do(req *http.Request) (*http.Response, error) {
	return f(req)
}

func blockingTransport(release <-chan struct{}) transportFunc {
	return func(*http.Request) (*http.Response, error) {
		<-release
		return nil, errors.New("released")
	}
}

func testCredential(t *testing.T) *azure.Credential {
	return &azure.Credential{Certificate: testCertificate(t), PrivateKey: testPassword}
}

// newTestConnection connects through transport with retries disabled and
// private metrics. A nil transport uses the real HTTP client.
func newTestConnection(t *testing.T, e *azure.Endpoint, transport transportFunc, opts ...azure.ConnectionOption) *azure.Connection {
	t.Helper()

	opts = append([]azure.ConnectionOption{azure.WithMetrics(metrics.New(prometheus.NewRegistry()))}, opts...)
	if transport != nil {
		opts = append(opts, azure.WithTransport(transport))
	}
	conn, err := azure.NewConnection(noRetries, testCredential(t), nil, e, opts...)
	require.NoError(t, err)
	return conn
}

// capturedRequest is what the test server saw.
type capturedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Body   string
}

type testServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []capturedRequest
}

func newTestServer(t *testing.T, status int, body string) *testServer {
	t.Helper()

	ts := &testServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		ts.mu.Lock()
		ts.requests = append(ts.requests, capturedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
			Body:   string(data),
		})
		ts.mu.Unlock()

		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *testServer) last(t *testing.T) capturedRequest {
	t.Helper()
	ts.mu.Lock()
	defer ts.mu.Unlock()
	require.NotEmpty(t, ts.requests)
	return ts.requests[len(ts.requests)-1]
}

func serverEndpoint(t *testing.T, ts *testServer, media azure.MediaType) *azure.Endpoint {
	t.Helper()

	e, err := azure.NewEndpoint[ManagementError](newRegistry(t), "sub-1", "2012-03-01", nsManagement,
		azure.WithAddress(ts.URL+"/"),
		azure.WithMediaType(media),
	)
	require.NoError(t, err)
	return e
}

func await[T any](t *testing.T, f *azure.Future[T]) (T, error) {
	t.Helper()
	select {
	case <-f.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("request did not complete")
	}
	return f.Await(t.Context())
}

func TestNewConnectionCertificate(t *testing.T) {
	t.Parallel()

	e := newEndpoint(t, azure.MediaXML)
	cert := testCertificate(t)

	conn, err := azure.NewConnection(nil, &azure.Credential{Certificate: cert, PrivateKey: testPassword}, nil, e)
	require.NoError(t, err)
	assert.Same(t, e, conn.Endpoint())
	assert.Equal(t, azure.DefaultSettings(), conn.Settings())

	_, err = azure.NewConnection(nil, &azure.Credential{Certificate: cert, PrivateKey: testPassword + "bad"}, nil, e)
	var userErr dserrors.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.Message, "Certificate/secret password error")
}

func TestNewConnectionConfigErrors(t *testing.T) {
	t.Parallel()

	e := newEndpoint(t, azure.MediaXML)

	tests := []struct {
		name  string
		props []azure.Property
		cred  *azure.Credential
		field string
	}{
		{name: "nil credential", cred: nil, field: azure.PropertyCertificate},
		{name: "no certificate", cred: &azure.Credential{PrivateKey: "pw"}, field: azure.PropertyCertificate},
		{name: "no password", cred: &azure.Credential{Certificate: []byte("cert")}, field: azure.PropertyPrivateKey},
		{
			name:  "bad setting",
			props: []azure.Property{{Name: azure.SettingHTTPTimeout, Value: "soon"}},
			cred:  &azure.Credential{Certificate: []byte("cert"), PrivateKey: "pw"},
			field: azure.SettingHTTPTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			conn, err := azure.NewConnection(tt.props, tt.cred, nil, e)
			assert.Nil(t, conn)

			var cfgErr dserrors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}

	_, err := azure.NewConnection(nil, testCredential(t), nil, nil)
	var adapterErr *azure.AdapterError
	assert.ErrorAs(t, err, &adapterErr)
}

func TestNewConnectionFromCredentials(t *testing.T) {
	t.Parallel()

	e := newEndpoint(t, azure.MediaXML)
	creds := []azure.Credential{
		{PrivateKey: "ignored"},
		{Certificate: testCertificate(t), PrivateKey: testPassword},
	}
	conn, err := azure.NewConnectionFromCredentials(noRetries, creds, nil, e)
	require.NoError(t, err)
	assert.Equal(t, 0, conn.Settings().HTTPRetries)

	_, err = azure.NewConnectionFromCredentials(nil, nil, nil, e)
	var cfgErr dserrors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestConnectionURI(t *testing.T) {
	t.Parallel()

	e, err := azure.NewEndpoint[ManagementError](newRegistry(t), "sub-1", "v", nsManagement)
	require.NoError(t, err)
	conn := newTestConnection(t, e, nil)

	tests := []struct {
		path   string
		params *canonical.QueryParams
		want   string
	}{
		{path: "", want: "https://management.core.windows.net/sub-1"},
		{path: "services/hostedservices", want: "https://management.core.windows.net/sub-1/services/hostedservices"},
		{path: "/services/hostedservices", want: "https://management.core.windows.net/sub-1/services/hostedservices"},
		{
			path:   "services/hostedservices/svc",
			params: canonical.NewQueryParams().Add("embed-detail", "true").AddFlag("comp"),
			want:   "https://management.core.windows.net/sub-1/services/hostedservices/svc?embed-detail=true&comp",
		},
		{path: "operations", params: canonical.NewQueryParams(), want: "https://management.core.windows.net/sub-1/operations"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, conn.URI(tt.path, tt.params), tt.path)
	}
}

func TestConnectionGetAs(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, http.StatusOK,
		"<HostedService><ServiceName>svc</ServiceName><Label>web</Label></HostedService>")
	conn := newTestConnection(t, serverEndpoint(t, ts, azure.MediaXML), nil)

	f := azure.GetAs[HostedService](conn, "services/hostedservices/svc", canonical.NewQueryParams().Add("embed-detail", "true"))
	got, err := await(t, f)
	require.NoError(t, err)
	assert.Equal(t, "svc", got.ServiceName)
	assert.Equal(t, "web", got.Label)
	assert.Equal(t, azure.OutcomeSuccess, f.Outcome())

	req := ts.last(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/sub-1/services/hostedservices/svc", req.Path)
	assert.Equal(t, "embed-detail=true", req.Query)
	assert.Equal(t, "2012-03-01", req.Header.Get("x-ms-version"))
	assert.Equal(t, "application/xml", req.Header.Get("Accept"))
	assert.Empty(t, req.Header.Get("Content-Type"))
}

func TestConnectionPutEncodesBody(t *testing.T) {
	t.Parallel()

	for _, media := range []azure.MediaType{azure.MediaXML, azure.MediaJSON} {
		t.Run(string(media), func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t, http.StatusCreated, "")
			conn := newTestConnection(t, serverEndpoint(t, ts, media), nil)

			resp, err := await(t, conn.Put("services/hostedservices/svc", HostedService{ServiceName: "svc", Label: "web"}))
			require.NoError(t, err)
			assert.Equal(t, http.StatusCreated, resp.StatusCode)

			req := ts.last(t)
			assert.Equal(t, http.MethodPut, req.Method)
			assert.Equal(t, string(media), req.Header.Get("Content-Type"))
			assert.Equal(t, string(media), req.Header.Get("Accept"))
			assert.Contains(t, req.Body, "svc")
		})
	}
}

func TestConnectionPostRawBodies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body any
		want string
	}{
		{name: "string", body: "<Raw>text</Raw>", want: "<Raw>text</Raw>"},
		{name: "bytes", body: []byte(`{"raw":true}`), want: `{"raw":true}`},
		{name: "no body", body: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ts := newTestServer(t, http.StatusAccepted, "")
			conn := newTestConnection(t, serverEndpoint(t, ts, azure.MediaXML), nil)

			resp, err := await(t, conn.Post("operations", tt.body))
			require.NoError(t, err)
			assert.Equal(t, http.StatusAccepted, resp.StatusCode)

			req := ts.last(t)
			assert.Equal(t, http.MethodPost, req.Method)
			assert.Equal(t, tt.want, req.Body)
			assert.Empty(t, req.Header.Get("Content-Type"))
		})
	}
}

func TestConnectionDeleteReturnsRawResponse(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, http.StatusOK, "<RequestId>42</RequestId>")
	conn := newTestConnection(t, serverEndpoint(t, ts, azure.MediaXML), nil)

	resp, err := await(t, conn.Delete("services/hostedservices/svc"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<RequestId>42</RequestId>", string(body))
	assert.Equal(t, http.MethodDelete, ts.last(t).Method)
}

func TestConnectionServiceError(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, http.StatusNotFound, errorXML)
	conn := newTestConnection(t, serverEndpoint(t, ts, azure.MediaXML), nil)

	f := azure.GetAs[HostedService](conn, "services/hostedservices/missing", nil)
	_, err := await(t, f)

	mErr, ok := azure.ServiceErrorAs[ManagementError](err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "ResourceNotFound", mErr.Code)
	assert.Equal(t, azure.OutcomeServiceError, f.Outcome())
}

func TestConnectionDecodeError(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, http.StatusOK, "<<garbage")
	conn := newTestConnection(t, serverEndpoint(t, ts, azure.MediaXML), nil)

	f := azure.GetAs[HostedService](conn, "services/hostedservices", nil)
	_, err := await(t, f)

	var decodeErr *azure.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "<<garbage", decodeErr.Content)
	assert.Equal(t, azure.OutcomeDecodeError, f.Outcome())
}

func TestConnectionTransportError(t *testing.T) {
	t.Parallel()

	ts := newTestServer(t, http.StatusOK, "")
	e := serverEndpoint(t, ts, azure.MediaXML)
	ts.Close()

	conn := newTestConnection(t, e, nil)
	f := conn.Get("services", nil)
	_, err := await(t, f)

	var transportErr *azure.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.MethodGet, transportErr.Method)
	assert.Equal(t, ts.URL+"/sub-1/services", transportErr.URI)
	assert.Equal(t, azure.OutcomeFailure, f.Outcome())
}

func TestConnectionBuildFailures(t *testing.T) {
	t.Parallel()

	badScheme, err := azure.NewEndpoint[ManagementError](newRegistry(t), "sub", "v", nsManagement,
		azure.WithAddress("ftp://example.test/"))
	require.NoError(t, err)

	called := false
	noCall := transportFunc(func(*http.Request) (*http.Response, error) {
		called = true
		return nil, errors.New("unexpected call")
	})

	tests := []struct {
		name   string
		future func() *azure.Future[*http.Response]
		cause  any
	}{
		{
			name: "unsupported scheme",
			future: func() *azure.Future[*http.Response] {
				return newTestConnection(t, badScheme, noCall).Get("services", nil)
			},
		},
		{
			name: "unregistered body type",
			future: func() *azure.Future[*http.Response] {
				return newTestConnection(t, newEndpoint(t, azure.MediaXML), noCall).Post("services", Deployment{Name: "x"})
			},
			cause: &azure.AdapterError{},
		},
	}

	for _, tt := range tests {
		f := tt.future()
		assert.Equal(t, azure.OutcomeFailure, f.Outcome(), tt.name)

		_, err := f.Await(t.Context())
		var reqErr *azure.RequestError
		require.ErrorAs(t, err, &reqErr, tt.name)
		if tt.cause != nil {
			var adapterErr *azure.AdapterError
			assert.ErrorAs(t, err, &adapterErr, tt.name)
		}
	}
	assert.False(t, called)
}

func TestConnectionRecoversPanics(t *testing.T) {
	t.Parallel()

	conn := newTestConnection(t, newEndpoint(t, azure.MediaXML), func(*http.Request) (*http.Response, error) {
		panic("transport exploded")
	})

	f := conn.Get("services", nil)
	_, err := await(t, f)

	var reqErr *azure.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Contains(t, err.Error(), "transport exploded")
	assert.Equal(t, azure.OutcomeFailure, f.Outcome())
}

type volatileBody struct {
	XMLName xml.Name `xml:"Volatile"`
}

func (volatileBody) MarshalXML(*xml.Encoder, xml.StartElement) error {
	panic("marshal exploded")
}

func TestConnectionRecoversBuildPanics(t *testing.T) {
	t.Parallel()

	reg := schema.NewRegistry()
	reg.Define("volatile", func(c *schema.Context) error {
		if err := schema.Register[volatileBody](c); err != nil {
			return err
		}
		return schema.Register[ManagementError](c)
	})
	e, err := azure.NewEndpoint[ManagementError](reg, "sub", "2012-03-01", "volatile")
	require.NoError(t, err)

	called := false
	conn := newTestConnection(t, e, func(*http.Request) (*http.Response, error) {
		called = true
		return nil, errors.New("unexpected call")
	})

	var f *azure.Future[*http.Response]
	require.NotPanics(t, func() { f = conn.Post("services", volatileBody{}) })
	assert.Equal(t, azure.OutcomeFailure, f.Outcome())

	_, err = f.Await(t.Context())
	var reqErr *azure.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.MethodPost, reqErr.Method)
	assert.Contains(t, err.Error(), "marshal exploded")
	assert.False(t, called)
}

func TestConnectionRecordsMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	ts := newTestServer(t, http.StatusOK, "<HostedService><ServiceName>svc</ServiceName></HostedService>")
	conn := newTestConnection(t, serverEndpoint(t, ts, azure.MediaXML), nil, azure.WithMetrics(m))

	_, err := await(t, azure.GetAs[HostedService](conn, "services", nil))
	require.NoError(t, err)
	_, err = await(t, azure.GetAs[Deployment](conn, "services", nil))
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "azadapter_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	expected := `
# HELP azadapter_requests_total Total number of management API requests by method and outcome
# TYPE azadapter_requests_total counter
azadapter_requests_total{method="GET",outcome="decode_error"} 1
azadapter_requests_total{method="GET",outcome="success"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "azadapter_requests_total"))
}

func TestConnectionSharedKeySigning(t *testing.T) {
	t.Parallel()

	const (
		account = "acct"
		key     = "dGVzdGtleQ=="
	)
	signer, err := sharedkey.NewPolicy(account, key, sharedkey.WithClock(func() time.Time {
		return time.Date(2015, time.January, 15, 20, 46, 23, 0, time.UTC)
	}))
	require.NoError(t, err)
	t.Cleanup(signer.Close)

	var mu sync.Mutex
	var expected string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, err := sharedkey.CreateSharedKeyAuthorization(sharedkey.StringToSign(r, account), key, account)
		mu.Lock()
		if err == nil {
			expected = auth
		}
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	e, err := azure.NewEndpoint[ManagementError](newRegistry(t), "sub-1", "2012-03-01", nsManagement,
		azure.WithAddress(srv.URL+"/"))
	require.NoError(t, err)
	conn := newTestConnection(t, e, nil, azure.WithSharedKey(signer))

	resp, err := await(t, conn.Get("services", canonical.NewQueryParams().Add("comp", "list")))
	require.NoError(t, err)

	sent := resp.Request.Header
	assert.Equal(t, "Thu, 15 Jan 2015 20:46:23 GMT", sent.Get("x-ms-date"))
	assert.True(t, strings.HasPrefix(sent.Get("Authorization"), "SharedKey acct:"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, expected, sent.Get("Authorization"))
}
