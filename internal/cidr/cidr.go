// Package cidr implements the IPv4 target-range arithmetic used for
// guest address selection.
package cidr

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is an IPv4 network address plus prefix length.
type Range struct {
	network uint32
	prefix  int
}

// Parse reads an "a.b.c.d/p" range. Malformed octets and prefixes
// outside 0-32 are validation errors.
func Parse(s string) (Range, error) {
	addr, prefixStr, ok := strings.Cut(s, "/")
	if !ok {
		return Range{}, fmt.Errorf("cidr: %q: missing prefix length", s)
	}

	network, err := parseIPv4(addr)
	if err != nil {
		return Range{}, fmt.Errorf("cidr: %q: %w", s, err)
	}

	prefix, err := strconv.Atoi(prefixStr)
	if err != nil || prefix < 0 || prefix > 32 {
		return Range{}, fmt.Errorf("cidr: %q: prefix length must be 0-32", s)
	}

	return Range{network: network, prefix: prefix}, nil
}

// Contains reports whether ip falls inside the range. A malformed ip is
// an error, not a containment mismatch.
func (r Range) Contains(ip string) (bool, error) {
	v, err := parseIPv4(ip)
	if err != nil {
		return false, fmt.Errorf("cidr: %w", err)
	}
	m := r.mask()
	return v&m == r.network&m, nil
}

// Prefix returns the range's prefix length.
func (r Range) Prefix() int { return r.prefix }

func (r Range) String() string {
	return fmt.Sprintf("%d.%d.%d.%d/%d",
		r.network>>24, r.network>>16&0xFF, r.network>>8&0xFF, r.network&0xFF, r.prefix)
}

func (r Range) mask() uint32 {
	if r.prefix == 0 {
		return 0
	}
	return 0xFFFFFFFF << (32 - r.prefix)
}

// parseIPv4 converts a dotted quad to its 32-bit integer value,
// rejecting non-numeric or out-of-range octets.
func parseIPv4(s string) (uint32, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("invalid IPv4 address %q", s)
	}
	var v uint32
	for _, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid IPv4 address %q: bad octet %q", s, p)
		}
		v = v<<8 | uint32(n)
	}
	return v, nil
}
