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

package platform

import (
	"path"

	"github.com/swapnilsparsh/devsVPN/netlock/helpers"
)

func doInitConstants() {
	settingsDir := "/Library/Application Support/privateLINE-Connect"
	settingsFile = path.Join(settingsDir, "netlock.json")
	recoveryFile = path.Join(settingsDir, "recovery.xml")

	logDir := "/Library/Logs/"
	logFile = path.Join(logDir, helpers.ServiceName+".log")

	dnsWatchFiles = []string{"/etc/resolv.conf"}
}

func doOsInit() (warnings []string, errors []error, logInfo []string) {
	networksetupBinPath = "/usr/sbin/networksetup"
	pfctlBinPath = "/sbin/pfctl"

	if err := checkFileAccessRightsExecutable("networksetup", networksetupBinPath); err != nil {
		errors = append(errors, err)
	}
	if err := checkFileAccessRightsExecutable("pfctl", pfctlBinPath); err != nil {
		errors = append(errors, err)
	}

	return warnings, errors, logInfo
}
