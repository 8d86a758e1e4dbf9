package azure

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Proxy is an outbound HTTP proxy.
type Proxy struct {
	Scheme   string
	Host     string
	Port     int
	Username string
	Password string
}

// URL returns the proxy URL, or nil for a nil or hostless proxy.
func (p *Proxy) URL() *url.URL {
	if p == nil || p.Host == "" {
		return nil
	}
	scheme := p.Scheme
	if scheme == "" {
		scheme = "http"
	}
	host := p.Host
	if p.Port > 0 {
		host = net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
	}
	u := &url.URL{Scheme: scheme, Host: host}
	if p.Username != "" {
		u.User = url.UserPassword(p.Username, p.Password)
	}
	return u
}

// newHTTPClient builds the client that sits at the bottom of the
// connection pipeline. The HTTP timeout bounds connection setup and the
// socket timeout bounds the wait for response headers.
func newHTTPClient(s Settings, proxy *Proxy, cert *tls.Certificate) *http.Client {
	dialer := &net.Dialer{
		Timeout:   s.HTTPTimeout,
		KeepAlive: 30 * time.Second,
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if cert != nil {
		tlsConfig.Certificates = []tls.Certificate{*cert}
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: s.SocketTimeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   10,
	}
	if u := proxy.URL(); u != nil {
		transport.Proxy = http.ProxyURL(u)
	}

	return &http.Client{Transport: transport}
}
