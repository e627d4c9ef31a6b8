// Copyright (c) 2025 privateLINE, LLC.

package firewall

import (
	"fmt"
	"net/netip"
	"strings"
)

// parsePrefix accepts an IP address or a CIDR
func parsePrefix(value string) (netip.Prefix, error) {
	if strings.Contains(value, "/") {
		p, err := netip.ParsePrefix(value)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("bad address '%s': %w", value, err)
		}
		return p, nil
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("bad address '%s': %w", value, err)
	}
	addr = addr.WithZone("")
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func prefixMask(p netip.Prefix) []byte {
	mask := make([]byte, p.Addr().BitLen()/8)
	for i := 0; i < p.Bits(); i++ {
		mask[i/8] |= 0x80 >> (i % 8)
	}
	return mask
}

func protocolNumber(name string, isV6 bool) (byte, error) {
	switch strings.ToLower(name) {
	case "tcp":
		return 6, nil
	case "udp":
		return 17, nil
	case "icmp":
		if isV6 {
			return 58, nil
		}
		return 1, nil
	}
	return 0, fmt.Errorf("unsupported protocol '%s'", name)
}
