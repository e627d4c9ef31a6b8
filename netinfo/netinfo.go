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
	"github.com/swapnilsparsh/devsVPN/netlock/logger"
)

var log *logger.Logger

func init() {
	log = logger.NewLogger("netinf")
}

// IPv6Mode - IPv6 configuration mode of a network interface
type IPv6Mode string

const (
	IPv6ModeUnknown   IPv6Mode = ""
	IPv6ModeOff       IPv6Mode = "Off"
	IPv6ModeAutomatic IPv6Mode = "Automatic"
	IPv6ModeLinkLocal IPv6Mode = "LinkLocal"
	IPv6ModeManual    IPv6Mode = "Manual"
)

// IPv6Info - IPv6 configuration of a network interface as reported by the OS.
// Router and PrefixLength are meaningful only for IPv6ModeManual.
type IPv6Info struct {
	Mode         IPv6Mode
	Address      string
	Router       string
	PrefixLength string
}

// Operations - primitive blocking operations on the OS network configuration.
// There is one implementation per OS (see New()).
type Operations interface {
	// ExecuteShell runs a command line through the system shell and returns its output
	ExecuteShell(command string) (string, error)
	// ListInterfaces returns names of network interfaces (services on macOS) in a stable order
	ListInterfaces() ([]string, error)
	// GetDnsServers returns DNS servers configured for the interface; empty list means "automatic"
	GetDnsServers(iface string) ([]string, error)
	// SetDnsServers applies DNS servers to the interface; empty list switches the interface to "automatic"
	SetDnsServers(iface string, servers []string) error
	GetIPv6Info(iface string) (IPv6Info, error)
	// SetIPv6Mode applies IPv6 mode. address, prefixLength and router are used only for IPv6ModeManual.
	SetIPv6Mode(iface string, mode IPv6Mode, address, prefixLength, router string) error
}

// New returns Operations implementation for the current OS
func New() Operations {
	return newOperations()
}
