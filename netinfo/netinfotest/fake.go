// Package netinfotest provides an in-memory netinfo.Operations for tests
package netinfotest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/swapnilsparsh/devsVPN/netlock/netinfo"
)

// DnsCall - a recorded SetDnsServers call; nil Servers means "automatic"
type DnsCall struct {
	Interface string
	Servers   []string
}

// IPv6Call - a recorded SetIPv6Mode call
type IPv6Call struct {
	Interface    string
	Mode         netinfo.IPv6Mode
	Address      string
	PrefixLength string
	Router       string
}

// Operations keeps interface configuration in memory and records every change
type Operations struct {
	mutex sync.Mutex

	Interfaces []string
	Dns        map[string][]string
	IPv6       map[string]netinfo.IPv6Info

	FailList     bool
	FailGetDns   map[string]bool
	FailSetDns   map[string]bool
	FailGetIPv6  map[string]bool
	FailSetIPv6  map[string]bool
	ShellOutputs map[string]string

	DnsCalls  []DnsCall
	IPv6Calls []IPv6Call
}

func New(interfaces ...string) *Operations {
	return &Operations{
		Interfaces:   interfaces,
		Dns:          make(map[string][]string),
		IPv6:         make(map[string]netinfo.IPv6Info),
		FailGetDns:   make(map[string]bool),
		FailSetDns:   make(map[string]bool),
		FailGetIPv6:  make(map[string]bool),
		FailSetIPv6:  make(map[string]bool),
		ShellOutputs: make(map[string]string),
	}
}

var errFake = errors.New("operation failed")

func (o *Operations) ExecuteShell(command string) (string, error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	out, ok := o.ShellOutputs[command]
	if !ok {
		return "", fmt.Errorf("unknown command '%s'", command)
	}
	return out, nil
}

func (o *Operations) ListInterfaces() ([]string, error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.FailList {
		return nil, errFake
	}
	return append([]string{}, o.Interfaces...), nil
}

func (o *Operations) GetDnsServers(iface string) ([]string, error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.FailGetDns[iface] {
		return nil, errFake
	}
	return append([]string{}, o.Dns[iface]...), nil
}

func (o *Operations) SetDnsServers(iface string, servers []string) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.DnsCalls = append(o.DnsCalls, DnsCall{Interface: iface, Servers: servers})
	if o.FailSetDns[iface] {
		return errFake
	}
	o.Dns[iface] = append([]string{}, servers...)
	return nil
}

func (o *Operations) GetIPv6Info(iface string) (netinfo.IPv6Info, error) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	if o.FailGetIPv6[iface] {
		return netinfo.IPv6Info{}, errFake
	}
	return o.IPv6[iface], nil
}

func (o *Operations) SetIPv6Mode(iface string, mode netinfo.IPv6Mode, address, prefixLength, router string) error {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.IPv6Calls = append(o.IPv6Calls, IPv6Call{Interface: iface, Mode: mode, Address: address, PrefixLength: prefixLength, Router: router})
	if o.FailSetIPv6[iface] {
		return errFake
	}
	info := netinfo.IPv6Info{Mode: mode}
	if mode == netinfo.IPv6ModeManual {
		info.Address, info.PrefixLength, info.Router = address, prefixLength, router
	}
	o.IPv6[iface] = info
	return nil
}

// DnsCallsFor returns recorded SetDnsServers calls of the interface
func (o *Operations) DnsCallsFor(iface string) []DnsCall {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	var ret []DnsCall
	for _, c := range o.DnsCalls {
		if c.Interface == iface {
			ret = append(ret, c)
		}
	}
	return ret
}

// IPv6CallsFor returns recorded SetIPv6Mode calls of the interface
func (o *Operations) IPv6CallsFor(iface string) []IPv6Call {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	var ret []IPv6Call
	for _, c := range o.IPv6Calls {
		if c.Interface == iface {
			ret = append(ret, c)
		}
	}
	return ret
}
