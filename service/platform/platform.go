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
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

var (
	settingsFile string
	logFile      string
	recoveryFile string

	networksetupBinPath string
	pfctlBinPath        string
	resolvectlBinPath   string
	powershellBinPath   string

	// resolver configuration files to watch for changes made outside of the daemon
	dnsWatchFiles []string
)

func init() {
	doInitConstants()
}

// Init - initialize platform-specific values.
// Returns warnings and errors to be logged by the caller (logger is not initialized yet at this point).
func Init() (warnings []string, errors []error, logInfo []string) {
	warnings, errors, logInfo = doOsInit()
	logInfo = append(logInfo,
		fmt.Sprintf("settings: '%s'", settingsFile),
		fmt.Sprintf("recovery: '%s'", recoveryFile),
		fmt.Sprintf("log: '%s'", logFile))
	return warnings, errors, logInfo
}

// Override - replace default file locations (empty values are ignored)
func Override(settings, recovery, log string) {
	if len(settings) > 0 {
		settingsFile = settings
	}
	if len(recovery) > 0 {
		recoveryFile = recovery
	}
	if len(log) > 0 {
		logFile = log
	}
}

// SettingsFile path to preferences file
func SettingsFile() string {
	return settingsFile
}

// LogFile path to log file
func LogFile() string {
	return logFile
}

// RecoveryFile path to the recovery document (outstanding network configuration changes)
func RecoveryFile() string {
	return recoveryFile
}

func NetworksetupBinPath() string {
	return networksetupBinPath
}

func PfctlBinPath() string {
	return pfctlBinPath
}

// ResolvectlBinPath returns empty string when systemd-resolved CLI is not available
func ResolvectlBinPath() string {
	return resolvectlBinPath
}

func PowershellBinPath() string {
	return powershellBinPath
}

// DnsWatchFiles - resolver files monitored by the DNS guard
func DnsWatchFiles() []string {
	return dnsWatchFiles
}

func lookPath(name string, defaultPath string) string {
	if p, err := exec.LookPath(name); err == nil {
		return p
	}
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}
	return ""
}

func checkFileAccessRightsExecutable(paramName string, file string) error {
	if len(file) == 0 {
		return fmt.Errorf("parameter '%s' is empty", paramName)
	}
	stat, err := os.Stat(file)
	if err != nil {
		return fmt.Errorf("%s '%s': %w", paramName, file, err)
	}
	if runtime.GOOS != "windows" && stat.Mode()&0111 == 0 {
		return fmt.Errorf("%s '%s': file is not executable", paramName, file)
	}
	return nil
}
