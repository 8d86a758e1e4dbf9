package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/systmms/azadapter/internal/logging"
)

const (
	defaultResolvConf = "/etc/resolv.conf"
	defaultDNSTimeout = 5 * time.Second
)

// Resolver performs forward and reverse lookups against a fixed list of
// name servers. Lookup failures are logged and reported as empty results.
type Resolver struct {
	client     *dns.Client
	servers    []string
	resolvConf string
	logger     *logging.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithServers sets the name servers as host:port pairs, replacing the
// ones from resolv.conf.
func WithServers(servers ...string) ResolverOption {
	return func(r *Resolver) {
		r.servers = append([]string(nil), servers...)
	}
}

// WithResolvConf reads the name servers from path instead of
// /etc/resolv.conf.
func WithResolvConf(path string) ResolverOption {
	return func(r *Resolver) {
		r.resolvConf = path
	}
}

// WithTimeout bounds each exchange with a server.
func WithTimeout(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.client.Timeout = d
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l *logging.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver returns a resolver. Without WithServers the servers come
// from resolv.conf.
func NewResolver(opts ...ResolverOption) (*Resolver, error) {
	r := &Resolver{
		client:     &dns.Client{Net: "udp", Timeout: defaultDNSTimeout},
		resolvConf: defaultResolvConf,
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}

	if len(r.servers) == 0 {
		cfg, err := dns.ClientConfigFromFile(r.resolvConf)
		if err != nil {
			return nil, fmt.Errorf("read name servers from %s: %w", r.resolvConf, err)
		}
		for _, s := range cfg.Servers {
			r.servers = append(r.servers, net.JoinHostPort(s, cfg.Port))
		}
	}
	if len(r.servers) == 0 {
		return nil, errors.New("no name servers configured")
	}
	return r, nil
}

// Servers returns the name servers in query order.
func (r *Resolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

// Addresses returns the IPv4 and IPv6 addresses of domain, IPv4 first. It
// returns nil for an empty or malformed name and when nothing resolves.
func (r *Resolver) Addresses(ctx context.Context, domain string) []string {
	if _, ok := dns.IsDomainName(domain); !ok || strings.Trim(domain, ".") == "" {
		return nil
	}

	var ips []string
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		answer, err := r.query(ctx, dns.Fqdn(domain), qtype)
		if err != nil {
			r.logger.Debug("lookup %s %s: %v", dns.TypeToString[qtype], domain, err)
			continue
		}
		for _, rr := range answer {
			switch rr := rr.(type) {
			case *dns.A:
				ips = append(ips, rr.A.String())
			case *dns.AAAA:
				ips = append(ips, rr.AAAA.String())
			}
		}
	}
	return ips
}

// FQDN returns the name a PTR record maps ip to, without the trailing dot,
// or "" when ip is not an address or has no reverse record.
func (r *Resolver) FQDN(ctx context.Context, ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	reverse, err := dns.ReverseAddr(addr.String())
	if err != nil {
		return ""
	}

	answer, err := r.query(ctx, reverse, dns.TypePTR)
	if err != nil {
		r.logger.Debug("reverse lookup %s: %v", ip, err)
		return ""
	}
	for _, rr := range answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, ".")
		}
	}
	return ""
}

// query asks each server in turn and returns the answer section of the
// first authoritative reply. NXDOMAIN is an empty answer, not an error.
func (r *Resolver) query(ctx context.Context, name string, qtype uint16) ([]dns.RR, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(name, qtype)
	msg.RecursionDesired = true

	var errs []error
	for _, server := range r.servers {
		reply, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", server, err))
			continue
		}
		switch reply.Rcode {
		case dns.RcodeSuccess:
			return reply.Answer, nil
		case dns.RcodeNameError:
			return nil, nil
		default:
			errs = append(errs, fmt.Errorf("%s: %s", server, dns.RcodeToString[reply.Rcode]))
		}
	}
	return nil, errors.Join(errs...)
}
