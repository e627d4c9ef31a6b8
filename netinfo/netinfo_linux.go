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
	"fmt"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/swapnilsparsh/devsVPN/netlock/service/platform"
	"github.com/swapnilsparsh/devsVPN/netlock/shell"
)

type linuxOperations struct {
	procSysRoot string
}

func newOperations() Operations {
	return &linuxOperations{procSysRoot: "/proc/sys/net/ipv6/conf"}
}

func (o *linuxOperations) ExecuteShell(command string) (string, error) {
	return shell.ExecShellCommand(log, command)
}

func (o *linuxOperations) ListInterfaces() ([]string, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("failed to list network links: %w", err)
	}

	ret := make([]string, 0, len(links))
	for _, l := range links {
		attrs := l.Attrs()
		if attrs == nil || attrs.Flags&net.FlagLoopback != 0 {
			continue
		}
		ret = append(ret, attrs.Name)
	}
	return ret, nil
}

func (o *linuxOperations) resolvectl(args ...string) (string, error) {
	bin := platform.ResolvectlBinPath()
	if len(bin) == 0 {
		return "", fmt.Errorf("resolvectl not available")
	}
	outText, _, _, _, err := shell.ExecAndGetOutput(log, 64*1024, "", bin, args...)
	return outText, err
}

func (o *linuxOperations) GetDnsServers(iface string) ([]string, error) {
	bin := platform.ResolvectlBinPath()
	if len(bin) == 0 {
		return nil, fmt.Errorf("failed to get DNS servers for '%s': resolvectl not available", iface)
	}

	servers := make([]string, 0, 2)
	outParse := func(text string, isError bool) {
		if !isError {
			servers = append(servers, parseResolvectlDnsLine(text)...)
		}
	}
	if err := shell.ExecAndProcessOutput(log, outParse, "", bin, "dns", iface); err != nil {
		return nil, fmt.Errorf("failed to get DNS servers for '%s': %w", iface, err)
	}
	return servers, nil
}

func (o *linuxOperations) SetDnsServers(iface string, servers []string) error {
	var err error
	if len(servers) == 0 {
		_, err = o.resolvectl("revert", iface)
	} else {
		_, err = o.resolvectl(append([]string{"dns", iface}, servers...)...)
	}
	if err != nil {
		return fmt.Errorf("failed to set DNS servers for '%s' to [%s]: %w", iface, strings.Join(servers, ","), err)
	}
	return nil
}

func (o *linuxOperations) disableIPv6File(iface string) string {
	return filepath.Join(o.procSysRoot, iface, "disable_ipv6")
}

func (o *linuxOperations) GetIPv6Info(iface string) (IPv6Info, error) {
	data, err := os.ReadFile(o.disableIPv6File(iface))
	if err != nil {
		return IPv6Info{}, fmt.Errorf("failed to read IPv6 state of '%s': %w", iface, err)
	}
	if strings.TrimSpace(string(data)) == "1" {
		return IPv6Info{Mode: IPv6ModeOff}, nil
	}

	link, err := netlink.LinkByName(iface)
	if err != nil {
		return IPv6Info{}, fmt.Errorf("failed to get link '%s': %w", iface, err)
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V6)
	if err != nil {
		return IPv6Info{}, fmt.Errorf("failed to get IPv6 addresses of '%s': %w", iface, err)
	}

	var linkLocal string
	for _, a := range addrs {
		if a.IPNet == nil {
			continue
		}
		if a.IP.IsLinkLocalUnicast() {
			if len(linkLocal) == 0 {
				linkLocal = a.IP.String()
			}
			continue
		}
		if !a.IP.IsGlobalUnicast() {
			continue
		}
		if a.Flags&unix.IFA_F_PERMANENT != 0 {
			ones, _ := a.Mask.Size()
			return IPv6Info{
				Mode:         IPv6ModeManual,
				Address:      a.IP.String(),
				PrefixLength: strconv.Itoa(ones),
				Router:       o.defaultRouter(link),
			}, nil
		}
		return IPv6Info{Mode: IPv6ModeAutomatic}, nil
	}

	return IPv6Info{Mode: IPv6ModeUnknown, Address: linkLocal}, nil
}

func (o *linuxOperations) defaultRouter(link netlink.Link) string {
	routes, err := netlink.RouteList(link, netlink.FAMILY_V6)
	if err != nil {
		return ""
	}
	for _, r := range routes {
		if (r.Dst == nil || r.Dst.IP.IsUnspecified()) && r.Gw != nil {
			return r.Gw.String()
		}
	}
	return ""
}

func (o *linuxOperations) SetIPv6Mode(iface string, mode IPv6Mode, address, prefixLength, router string) error {
	disable := "0"
	if mode == IPv6ModeOff {
		disable = "1"
	}
	if err := os.WriteFile(o.disableIPv6File(iface), []byte(disable), 0644); err != nil {
		return fmt.Errorf("failed to set IPv6 mode '%s' for '%s': %w", mode, iface, err)
	}
	if mode != IPv6ModeManual {
		return nil
	}

	prefix, err := netip.ParsePrefix(address + "/" + prefixLength)
	if err != nil {
		return fmt.Errorf("bad manual IPv6 address for '%s': %w", iface, err)
	}
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("failed to get link '%s': %w", iface, err)
	}
	addr := &netlink.Addr{IPNet: &net.IPNet{
		IP:   prefix.Addr().AsSlice(),
		Mask: net.CIDRMask(prefix.Bits(), 128),
	}}
	if err := netlink.AddrReplace(link, addr); err != nil {
		return fmt.Errorf("failed to set IPv6 address for '%s': %w", iface, err)
	}

	if len(router) > 0 {
		gw := net.ParseIP(router)
		if gw == nil {
			return fmt.Errorf("bad IPv6 router '%s'", router)
		}
		route := &netlink.Route{
			LinkIndex: link.Attrs().Index,
			Dst:       &net.IPNet{IP: net.IPv6zero, Mask: net.CIDRMask(0, 128)},
			Gw:        gw,
		}
		if err := netlink.RouteReplace(route); err != nil {
			return fmt.Errorf("failed to set IPv6 router for '%s': %w", iface, err)
		}
	}
	return nil
}
