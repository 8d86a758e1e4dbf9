// Package netutil holds the network helpers the management adapter needs
// when describing virtual networks: CIDR decomposition and forward and
// reverse DNS lookups.
package netutil

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/systmms/azadapter/internal/logging"
)

// ErrInvalidCIDR is returned by ParseCIDR for blocks it cannot decompose.
var ErrInvalidCIDR = errors.New("invalid CIDR block")

// NetworkContext is an IPv4 CIDR block split into its parts.
type NetworkContext struct {
	CIDR         string
	IP           string
	Mask         string // dotted form, e.g. 255.255.0.0
	PrefixLength int
	NumericMask  int32 // the mask as a signed 32 bit value, 0xffff0000 == -65536
}

// ParseCIDR decomposes block. A block without a prefix length has prefix
// 0 and an all-zero mask.
func ParseCIDR(block string) (*NetworkContext, error) {
	ip, prefixText, hasPrefix := strings.Cut(strings.TrimSpace(block), "/")

	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4() {
		return nil, fmt.Errorf("%w %q: address %q is not IPv4", ErrInvalidCIDR, block, ip)
	}

	prefix := 0
	if hasPrefix {
		prefix, err = strconv.Atoi(prefixText)
		if err != nil || prefix < 0 || prefix > 32 {
			return nil, fmt.Errorf("%w %q: prefix length %q", ErrInvalidCIDR, block, prefixText)
		}
	}

	mask := net.CIDRMask(prefix, 32)
	return &NetworkContext{
		CIDR:         block,
		IP:           addr.String(),
		Mask:         net.IP(mask).String(),
		PrefixLength: prefix,
		NumericMask:  int32(binary.BigEndian.Uint32(mask)),
	}, nil
}

// Prefix returns the block as a netip.Prefix with the host bits cleared.
func (n *NetworkContext) Prefix() (netip.Prefix, error) {
	addr, err := netip.ParseAddr(n.IP)
	if err != nil {
		return netip.Prefix{}, err
	}
	return addr.Prefix(n.PrefixLength)
}

// Contains reports whether ip falls inside the block.
func (n *NetworkContext) Contains(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	p, err := n.Prefix()
	return err == nil && p.Contains(addr)
}

func (n *NetworkContext) String() string {
	if n == nil {
		return "<nil>"
	}
	return fmt.Sprintf("cidr=%s ip=%s mask=%s prefix=%d numeric=0x%08x",
		n.CIDR, n.IP, n.Mask, n.PrefixLength, uint32(n.NumericMask))
}

// Describe implements logging.Describer.
func (n *NetworkContext) Describe() []logging.Field {
	if n == nil {
		return nil
	}
	return []logging.Field{
		{Name: "CIDR", Value: n.CIDR},
		{Name: "IP", Value: n.IP},
		{Name: "Mask", Value: n.Mask},
		{Name: "PrefixLength", Value: n.PrefixLength},
		{Name: "NumericMask", Value: n.NumericMask},
	}
}
