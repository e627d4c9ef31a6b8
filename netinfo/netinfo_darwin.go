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
	"strings"

	"github.com/swapnilsparsh/devsVPN/netlock/service/platform"
	"github.com/swapnilsparsh/devsVPN/netlock/shell"
)

type darwinOperations struct{}

func newOperations() Operations {
	return &darwinOperations{}
}

func (o *darwinOperations) ExecuteShell(command string) (string, error) {
	return shell.ExecShellCommand(log, command)
}

func (o *darwinOperations) networksetup(args ...string) (string, error) {
	outText, _, _, _, err := shell.ExecAndGetOutput(log, 64*1024, "", platform.NetworksetupBinPath(), args...)
	return outText, err
}

// ListInterfaces returns macOS network services ('networksetup -listallnetworkservices')
func (o *darwinOperations) ListInterfaces() ([]string, error) {
	out, err := o.networksetup("-listallnetworkservices")
	if err != nil {
		return nil, fmt.Errorf("failed to list network services: %w", err)
	}
	return parseNetworkServices(out), nil
}

func (o *darwinOperations) GetDnsServers(iface string) ([]string, error) {
	out, err := o.networksetup("-getdnsservers", iface)
	if err != nil {
		return nil, fmt.Errorf("failed to get DNS servers for '%s': %w", iface, err)
	}
	return parseDnsServersLines(out), nil
}

func (o *darwinOperations) SetDnsServers(iface string, servers []string) error {
	args := []string{"-setdnsservers", iface}
	if len(servers) == 0 {
		args = append(args, "empty")
	} else {
		args = append(args, servers...)
	}
	if _, err := o.networksetup(args...); err != nil {
		return fmt.Errorf("failed to set DNS servers for '%s' to [%s]: %w", iface, strings.Join(servers, ","), err)
	}
	return nil
}

func (o *darwinOperations) GetIPv6Info(iface string) (IPv6Info, error) {
	out, err := o.networksetup("-getinfo", iface)
	if err != nil {
		return IPv6Info{}, fmt.Errorf("failed to get network info for '%s': %w", iface, err)
	}
	return parseNetworksetupIPv6Info(out), nil
}

func (o *darwinOperations) SetIPv6Mode(iface string, mode IPv6Mode, address, prefixLength, router string) error {
	var args []string
	switch mode {
	case IPv6ModeOff:
		args = []string{"-setv6off", iface}
	case IPv6ModeAutomatic:
		args = []string{"-setv6automatic", iface}
	case IPv6ModeLinkLocal:
		args = []string{"-setv6LinkLocal", iface}
	case IPv6ModeManual:
		args = []string{"-setv6manual", iface, address, prefixLength, router}
	default:
		return fmt.Errorf("unsupported IPv6 mode '%s'", mode)
	}

	if _, err := o.networksetup(args...); err != nil {
		return fmt.Errorf("failed to set IPv6 mode '%s' for '%s': %w", mode, iface, err)
	}
	return nil
}
