// Copyright (c) 2025 privateLINE, LLC.

package firewall

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var pfTokenRegexp = regexp.MustCompile(`(?m)^Token\s*:\s*(\d+)`)

// parsePfToken extracts the reference token from 'pfctl -E' output
func parsePfToken(out string) string {
	m := pfTokenRegexp.FindStringSubmatch(out)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func pfNot(m Match) string {
	if m == MatchNotEqual {
		return "! "
	}
	return ""
}

// pfRuleLine renders the rule in pf.conf syntax.
// Permit rules are 'quick' so they win over block rules regardless of their position.
func pfRuleLine(rule Rule) (string, error) {
	var isInput bool
	switch rule.Layer {
	case LayerRecvAcceptV4, LayerRecvAcceptV6:
		isInput = true
	case LayerConnectV4, LayerConnectV6, LayerFlowEstablishedV4, LayerFlowEstablishedV6:
	default:
		return "", fmt.Errorf("layer '%s' is not supported", rule.Layer)
	}
	isV6 := IsIPv6Layer(rule.Layer)

	var iface, proto, addr, port string
	for _, c := range rule.Conditions {
		switch c.Field {
		case FieldLoopback:
			iface = "on " + pfNot(c.Match) + "lo0"
		case FieldLocalInterface:
			iface = "on " + pfNot(c.Match) + c.Value
		case FieldProtocol:
			n, err := protocolNumber(c.Value, isV6)
			if err != nil {
				return "", err
			}
			name := map[byte]string{6: "tcp", 17: "udp", 1: "icmp", 58: "icmp6"}[n]
			proto = "proto " + name
			if c.Match == MatchNotEqual {
				return "", fmt.Errorf("pf does not support negated protocol")
			}
		case FieldRemotePort:
			if _, err := strconv.ParseUint(c.Value, 10, 16); err != nil {
				return "", fmt.Errorf("bad port '%s'", c.Value)
			}
			op := "= "
			if c.Match == MatchNotEqual {
				op = "!= "
			}
			port = "port " + op + c.Value
		case FieldRemoteAddress:
			prefix, err := parsePrefix(c.Value)
			if err != nil {
				return "", err
			}
			if prefix.Addr().Is6() != isV6 {
				return "", fmt.Errorf("address '%s' does not match layer '%s'", c.Value, rule.Layer)
			}
			addr = pfNot(c.Match) + prefix.String()
		default:
			return "", fmt.Errorf("unsupported condition field '%s'", c.Field)
		}
	}
	if len(port) > 0 && len(proto) == 0 {
		proto = "proto { tcp udp }"
	}

	parts := []string{"block drop"}
	if rule.Action == ActionPermit {
		parts = []string{"pass"}
	}
	if isInput {
		parts = append(parts, "in")
	} else {
		parts = append(parts, "out")
	}
	if rule.Action == ActionPermit {
		parts = append(parts, "quick")
	}
	if len(iface) > 0 {
		parts = append(parts, iface)
	}
	if isV6 {
		parts = append(parts, "inet6")
	} else {
		parts = append(parts, "inet")
	}
	if len(proto) > 0 {
		parts = append(parts, proto)
	}

	remote := "any"
	if len(addr) > 0 {
		remote = addr
	}
	switch {
	case len(addr) == 0 && len(port) == 0:
		parts = append(parts, "all")
	case isInput:
		parts = append(parts, "from", remote)
		if len(port) > 0 {
			parts = append(parts, port)
		}
		parts = append(parts, "to", "any")
	default:
		parts = append(parts, "from", "any", "to", remote)
		if len(port) > 0 {
			parts = append(parts, port)
		}
	}
	if len(rule.Name) > 0 {
		parts = append(parts, "label", strconv.Quote(rule.Name))
	}
	return strings.Join(parts, " "), nil
}
