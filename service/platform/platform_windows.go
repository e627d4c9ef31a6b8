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
	"os"
	"path"

	"github.com/swapnilsparsh/devsVPN/netlock/helpers"
)

func doInitConstants() {
	programData := os.Getenv("ProgramData")
	if len(programData) == 0 {
		programData = `C:\ProgramData`
	}
	settingsDir := path.Join(programData, "privateLINE-Connect")
	settingsFile = path.Join(settingsDir, "netlock.json")
	recoveryFile = path.Join(settingsDir, "recovery.xml")
	logFile = path.Join(settingsDir, "log", helpers.ServiceName+".log")
}

func doOsInit() (warnings []string, errors []error, logInfo []string) {
	powershellBinPath = lookPath("powershell.exe", path.Join(os.Getenv("SystemRoot"), `System32\WindowsPowerShell\v1.0\powershell.exe`))
	if len(powershellBinPath) == 0 {
		warnings = append(warnings, "'powershell' not found: IPv6 locking is not available")
	}
	return warnings, errors, logInfo
}
