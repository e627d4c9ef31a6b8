package netinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseNetworkServices(t *testing.T) {
	out := "An asterisk (*) denotes that a network service is disabled.\nWi-Fi\n*Bluetooth PAN\n\nThunderbolt Bridge\n"
	assert.Equal(t, []string{"Wi-Fi", "Bluetooth PAN", "Thunderbolt Bridge"}, parseNetworkServices(out))
}

func TestParseDnsServersLines(t *testing.T) {
	assert.Empty(t, parseDnsServersLines("There aren't any DNS Servers set on Wi-Fi.\n"))
	assert.Equal(t, []string{"8.8.8.8", "8.8.4.4"}, parseDnsServersLines("8.8.8.8\n8.8.4.4\n"))
}

func TestParseResolvectlDnsLine(t *testing.T) {
	assert.Equal(t, []string{"192.168.1.1", "fe80::1%eth0"}, parseResolvectlDnsLine("Link 2 (eth0): 192.168.1.1 fe80::1%eth0"))
	assert.Empty(t, parseResolvectlDnsLine("Link 2 (eth0):"))
	assert.Empty(t, parseResolvectlDnsLine(""))
}

func TestParseNetworksetupIPv6Info(t *testing.T) {
	manual := "DHCP Configuration\nIP address: 192.168.1.10\nRouter: 192.168.1.1\n" +
		"IPv6: Manual\nIPv6 IP address: 2001:db8::10\nIPv6 Prefix Length: 64\nIPv6 Router: 2001:db8::1\n"
	assert.Equal(t, IPv6Info{Mode: IPv6ModeManual, Address: "2001:db8::10", Router: "2001:db8::1", PrefixLength: "64"},
		parseNetworksetupIPv6Info(manual))

	automatic := "IPv6: Automatic\nIPv6 IP address: none\nIPv6 Router: fe80::1\n"
	assert.Equal(t, IPv6Info{Mode: IPv6ModeAutomatic}, parseNetworksetupIPv6Info(automatic))

	blank := "IP address: 10.0.0.2\nIPv6 IP address: fe80::1c2b:3cff:fe4d:5e6f\n"
	assert.Equal(t, IPv6Info{Mode: IPv6ModeUnknown, Address: "fe80::1c2b:3cff:fe4d:5e6f"}, parseNetworksetupIPv6Info(blank))
}
