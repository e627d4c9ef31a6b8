//
//  Daemon for privateLINE Connect Desktop
//  https://github.com/swapnilsparsh/devsVPN
//
//  Created by Stelnykovych Alexandr.
//  Copyright (c) 2023 IVPN Limited.
//
//  This file is part of the Daemon for privateLINE Connect Desktop.
//
//  The Daemon for privateLINE Connect Desktop is free software: you can redistribute it and/or
//  modify it under the terms of the GNU General Public License as published by the Free
//  Software Foundation, either version 3 of the License, or (at your option) any later version.
//
//  The Daemon for privateLINE Connect Desktop is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of MERCHANTABILITY
//  or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for more
//  details.
//
//  You should have received a copy of the GNU General Public License
//  along with the Daemon for privateLINE Connect Desktop. If not, see <https://www.gnu.org/licenses/>.
//

package netinfo

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
	"golang.zx2c4.com/wireguard/windows/tunnel/winipcfg"

	"github.com/swapnilsparsh/devsVPN/netlock/service/platform"
	"github.com/swapnilsparsh/devsVPN/netlock/shell"
)

type windowsOperations struct{}

func newOperations() Operations {
	return &windowsOperations{}
}

func (o *windowsOperations) ExecuteShell(command string) (string, error) {
	return shell.ExecShellCommand(log, command)
}

func (o *windowsOperations) adapters() ([]*winipcfg.IPAdapterAddresses, error) {
	adapters, err := winipcfg.GetAdaptersAddresses(windows.AF_UNSPEC, winipcfg.GAAFlagDefault)
	if err != nil {
		return nil, fmt.Errorf("failed to get adapters: %w", err)
	}
	return adapters, nil
}

func (o *windowsOperations) luidByName(iface string) (winipcfg.LUID, error) {
	adapters, err := o.adapters()
	if err != nil {
		return 0, err
	}
	for _, a := range adapters {
		if a.FriendlyName() == iface {
			return a.LUID, nil
		}
	}
	return 0, fmt.Errorf("interface '%s' not found", iface)
}

func (o *windowsOperations) ListInterfaces() ([]string, error) {
	adapters, err := o.adapters()
	if err != nil {
		return nil, err
	}
	ret := make([]string, 0, len(adapters))
	for _, a := range adapters {
		if a.IfType == winipcfg.IfTypeSoftwareLoopback {
			continue
		}
		ret = append(ret, a.FriendlyName())
	}
	return ret, nil
}

// GetDnsServers reads statically configured servers from the registry.
// Servers received from DHCP are not reported (interface is "automatic").
func (o *windowsOperations) GetDnsServers(iface string) ([]string, error) {
	luid, err := o.luidByName(iface)
	if err != nil {
		return nil, err
	}
	guid, err := luid.GUID()
	if err != nil {
		return nil, fmt.Errorf("failed to get GUID of '%s': %w", iface, err)
	}

	var servers []string
	for _, tcpip := range []string{"Tcpip", "Tcpip6"} {
		keyPath := `SYSTEM\CurrentControlSet\Services\` + tcpip + `\Parameters\Interfaces\` + guid.String()
		k, err := registry.OpenKey(registry.LOCAL_MACHINE, keyPath, registry.QUERY_VALUE)
		if err != nil {
			if errors.Is(err, registry.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to open '%s': %w", keyPath, err)
		}
		val, _, err := k.GetStringValue("NameServer")
		k.Close()
		if err != nil && !errors.Is(err, registry.ErrNotExist) {
			return nil, fmt.Errorf("failed to read NameServer of '%s': %w", iface, err)
		}
		servers = append(servers, parseDnsServersLines(strings.NewReplacer(",", "\n", " ", "\n").Replace(val))...)
	}
	return servers, nil
}

func (o *windowsOperations) SetDnsServers(iface string, servers []string) error {
	luid, err := o.luidByName(iface)
	if err != nil {
		return err
	}

	var v4, v6 []netip.Addr
	for _, s := range servers {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return fmt.Errorf("bad DNS server '%s': %w", s, err)
		}
		if addr.Is4() {
			v4 = append(v4, addr)
		} else {
			v6 = append(v6, addr)
		}
	}

	apply := func(family winipcfg.AddressFamily, addrs []netip.Addr) error {
		if len(addrs) == 0 {
			return luid.FlushDNS(family)
		}
		return luid.SetDNS(family, addrs, nil)
	}
	if err := apply(windows.AF_INET, v4); err != nil {
		return fmt.Errorf("failed to set IPv4 DNS servers for '%s': %w", iface, err)
	}
	if err := apply(windows.AF_INET6, v6); err != nil {
		return fmt.Errorf("failed to set IPv6 DNS servers for '%s': %w", iface, err)
	}
	return nil
}

func (o *windowsOperations) powershell(script string) (string, error) {
	bin := platform.PowershellBinPath()
	if len(bin) == 0 {
		return "", fmt.Errorf("powershell not available")
	}
	outText, _, _, _, err := shell.ExecAndGetOutput(log, 64*1024, "", bin, "-NoProfile", "-NonInteractive", "-Command", script)
	return strings.TrimSpace(outText), err
}

func psQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// GetIPv6Info reports only the binding state of the IPv6 protocol: Off or Automatic.
func (o *windowsOperations) GetIPv6Info(iface string) (IPv6Info, error) {
	out, err := o.powershell(fmt.Sprintf("(Get-NetAdapterBinding -Name %s -ComponentID ms_tcpip6).Enabled", psQuote(iface)))
	if err != nil {
		return IPv6Info{}, fmt.Errorf("failed to get IPv6 binding of '%s': %w", iface, err)
	}
	if strings.EqualFold(out, "False") {
		return IPv6Info{Mode: IPv6ModeOff}, nil
	}
	return IPv6Info{Mode: IPv6ModeAutomatic}, nil
}

func (o *windowsOperations) SetIPv6Mode(iface string, mode IPv6Mode, address, prefixLength, router string) error {
	cmdlet := "Enable-NetAdapterBinding"
	if mode == IPv6ModeOff {
		cmdlet = "Disable-NetAdapterBinding"
	}
	if _, err := o.powershell(fmt.Sprintf("%s -Name %s -ComponentID ms_tcpip6", cmdlet, psQuote(iface))); err != nil {
		return fmt.Errorf("failed to set IPv6 mode '%s' for '%s': %w", mode, iface, err)
	}
	if mode != IPv6ModeManual {
		return nil
	}

	if err := shell.Exec(log, "netsh", "interface", "ipv6", "add", "address", iface, address+"/"+prefixLength); err != nil {
		return fmt.Errorf("failed to set IPv6 address for '%s': %w", iface, err)
	}
	if len(router) > 0 {
		if err := shell.Exec(log, "netsh", "interface", "ipv6", "add", "route", "::/0", iface, router); err != nil {
			return fmt.Errorf("failed to set IPv6 router for '%s': %w", iface, err)
		}
	}
	return nil
}
