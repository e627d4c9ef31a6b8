// Copyright (c) 2025 privateLINE, LLC.

package netinfo

import (
	"regexp"
	"strings"

	"github.com/swapnilsparsh/devsVPN/netlock/helpers"
)

var (
	// Example of 'networksetup -getinfo "Wi-Fi"' output:
	//	DHCP Configuration
	//	IP address: 192.168.1.10
	//	Subnet mask: 255.255.255.0
	//	Router: 192.168.1.1
	//	IPv6: Manual
	//	IPv6 IP address: 2001:db8::10
	//	IPv6 Prefix Length: 64
	//	IPv6 Router: 2001:db8::1
	regexpIPv6Mode    = regexp.MustCompile(`(?m)^IPv6: (.*?)\s*$`)
	regexpIPv6Address = regexp.MustCompile(`(?m)^IPv6 IP address: (.*?)\s*$`)
	regexpIPv6Router  = regexp.MustCompile(`(?m)^IPv6 (?:IP )?Router: (.*?)\s*$`)
	regexpIPv6Prefix  = regexp.MustCompile(`(?m)^IPv6 Prefix Length: (.*?)\s*$`)
)

func regexpMatchOne(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	v := strings.TrimSpace(m[1])
	if strings.EqualFold(v, "none") {
		return ""
	}
	return v
}

// parseNetworkServices parses 'networksetup -listallnetworkservices' output:
//
//	An asterisk (*) denotes that a network service is disabled.
//	Wi-Fi
//	*Bluetooth PAN
//	Thunderbolt Bridge
func parseNetworkServices(out string) []string {
	services := make([]string, 0, 4)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || strings.Contains(line, "denotes") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		if len(line) > 0 {
			services = append(services, line)
		}
	}
	return services
}

// parseDnsServersLines keeps only IP literals, one per line.
// Example 'networksetup -getdnsservers Wi-Fi' output for automatic configuration:
//
//	There aren't any DNS Servers set on Wi-Fi.
func parseDnsServersLines(out string) []string {
	return helpers.FilterIPLiterals(strings.Split(out, "\n"))
}

// parseResolvectlDnsLine parses a line of 'resolvectl dns <iface>' output:
//
//	Link 2 (eth0): 192.168.1.1 fe80::1%eth0
func parseResolvectlDnsLine(line string) []string {
	idx := strings.Index(line, "):")
	if idx < 0 {
		return nil
	}
	return helpers.FilterIPLiterals(strings.Fields(line[idx+2:]))
}

// parseNetworksetupIPv6Info parses 'networksetup -getinfo <service>' output.
// Router and prefix are returned only for Manual mode.
func parseNetworksetupIPv6Info(out string) IPv6Info {
	info := IPv6Info{
		Mode:    IPv6Mode(regexpMatchOne(regexpIPv6Mode, out)),
		Address: regexpMatchOne(regexpIPv6Address, out),
	}
	if info.Mode == IPv6ModeManual {
		info.Router = regexpMatchOne(regexpIPv6Router, out)
		info.PrefixLength = regexpMatchOne(regexpIPv6Prefix, out)
	}
	return info
}
