package radius

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// IPv4StringToBytes converts a dotted-quad address, optionally suffixed
// with a "/prefix", into its wire representation: 4 bytes for a bare
// address, or 6 bytes ([0x00, prefix, a, b, c, d]) when a prefix is given.
func IPv4StringToBytes(s string) ([]byte, error) {
	addr, prefix, hasPrefix, err := splitPrefix(s)
	if err != nil {
		return nil, fmt.Errorf("ipv4 %q: %w: %v", s, ErrMalformedIPAddr, err)
	}
	ip4 := net.ParseIP(addr).To4()
	if ip4 == nil {
		return nil, fmt.Errorf("ipv4 %q: %w", s, ErrMalformedIPAddr)
	}
	if !hasPrefix {
		return []byte(ip4), nil
	}
	out := make([]byte, 0, 6)
	out = append(out, 0x00, byte(prefix))
	out = append(out, ip4...)
	return out, nil
}

// BytesToIPv4String is the inverse of IPv4StringToBytes. It accepts 4
// bytes (bare address) or 6 bytes (prefixed); any other length is
// ErrMalformedIPAddr.
func BytesToIPv4String(b []byte) (string, error) {
	switch len(b) {
	case 4:
		return net.IP(b).String(), nil
	case 6:
		return fmt.Sprintf("%s/%d", net.IP(b[2:6]).String(), b[1]), nil
	default:
		return "", fmt.Errorf("ipv4 bytes len %d: %w", len(b), ErrMalformedIPAddr)
	}
}

// IPv6StringToBytes converts an IPv6 address, optionally suffixed with a
// "/prefix", into its wire representation: 16 bytes for a bare address, or
// 18 bytes (big-endian u16 prefix followed by the address) when a prefix
// is given.
func IPv6StringToBytes(s string) ([]byte, error) {
	addr, prefix, hasPrefix, err := splitPrefix(s)
	if err != nil {
		return nil, fmt.Errorf("ipv6 %q: %w: %v", s, ErrMalformedIPAddr, err)
	}
	ip6 := net.ParseIP(addr).To16()
	if ip6 == nil {
		return nil, fmt.Errorf("ipv6 %q: %w", s, ErrMalformedIPAddr)
	}
	if !hasPrefix {
		return []byte(ip6), nil
	}
	out := make([]byte, 2, 18)
	binary.BigEndian.PutUint16(out, uint16(prefix))
	out = append(out, ip6...)
	return out, nil
}

// BytesToIPv6String is the inverse of IPv6StringToBytes. It accepts 16
// bytes (bare address) or 18 bytes (prefixed); any other length is
// ErrMalformedIPAddr.
func BytesToIPv6String(b []byte) (string, error) {
	switch len(b) {
	case 16:
		return net.IP(b).String(), nil
	case 18:
		prefix := binary.BigEndian.Uint16(b[:2])
		return fmt.Sprintf("%s/%d", net.IP(b[2:18]).String(), prefix), nil
	default:
		return "", fmt.Errorf("ipv6 bytes len %d: %w", len(b), ErrMalformedIPAddr)
	}
}

// splitPrefix splits "addr" or "addr/prefix" and reports whether a prefix
// was present.
func splitPrefix(s string) (addr string, prefix int, hasPrefix bool, err error) {
	idx := strings.IndexByte(s, '/')
	if idx < 0 {
		return s, 0, false, nil
	}
	p, err := strconv.Atoi(s[idx+1:])
	if err != nil {
		return "", 0, false, fmt.Errorf("invalid prefix: %w", err)
	}
	return s[:idx], p, true, nil
}

// IntegerToBytes encodes a 32-bit attribute value (RFC 2865 §5.6) in
// big-endian order.
func IntegerToBytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// BytesToInteger decodes a 4-byte big-endian integer attribute value.
func BytesToInteger(b [4]byte) uint32 {
	return binary.BigEndian.Uint32(b[:])
}

// Integer64ToBytes encodes a 64-bit attribute value in big-endian order
// (used by integer64-typed vendor attributes such as Event-Timestamp
// extensions).
func Integer64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// BytesToInteger64 decodes an 8-byte big-endian integer64 attribute value.
func BytesToInteger64(b [8]byte) uint64 {
	return binary.BigEndian.Uint64(b[:])
}

// TimestampToBytes encodes a Unix timestamp into an 8-byte big-endian
// field. Its counterpart BytesToTimestamp reads the RFC 2865 §5.10 4-byte
// "date" type instead; the two are intentionally asymmetric. Nothing in
// this codec's own wire path calls TimestampToBytes — RFC 2865 dates are
// 4 bytes — but it is kept for callers that need a wider timestamp
// (e.g. vendor attributes defined with an 8-byte time field).
func TimestampToBytes(v uint64) []byte {
	return Integer64ToBytes(v)
}

// BytesToTimestamp decodes the RFC 2865 §5.10 "date" attribute type: 4
// bytes, big-endian seconds since the Unix epoch.
func BytesToTimestamp(b [4]byte) uint32 {
	return binary.BigEndian.Uint32(b[:])
}
