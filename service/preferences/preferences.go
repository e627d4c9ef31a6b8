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

package preferences

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/swapnilsparsh/devsVPN/netlock/helpers"
	"github.com/swapnilsparsh/devsVPN/netlock/logger"
	"github.com/swapnilsparsh/devsVPN/netlock/service/platform"
)

var log *logger.Logger
var mutexRW sync.RWMutex

func init() {
	log = logger.NewLogger("prefs")
}

const (
	// FormatVersion - version of the preferences file format
	FormatVersion = "1"

	// DnsModeAuto - DNS servers of all interfaces are switched while locked
	DnsModeAuto = "auto"
	// IPv6ModeDisable - IPv6 is disabled on all interfaces while locked
	IPv6ModeDisable = "disable"
)

// Preferences - network lock preferences
type Preferences struct {
	// Format version of the saved data
	Version string
	// SettingsSessionUUID is unique for Preferences object
	// It allow to detect situations when settings was erased (created new Preferences object)
	SettingsSessionUUID string
	IsLogging           bool

	// DnsMode: "auto" enables DNS switching; any other value disables it
	DnsMode string
	// DnsServers - comma separated list of DNS servers applied while locked
	DnsServers string
	// IsDnsGuard: re-apply DNS servers when resolver configuration is changed by someone else
	IsDnsGuard bool

	// IPv6Mode: "disable" enables IPv6 locking; any other value disables it
	IPv6Mode string

	// AllowLAN: permit traffic to private address ranges while locked
	AllowLAN bool
}

func Create() *Preferences {
	// init default values
	return &Preferences{
		Version:             FormatVersion,
		SettingsSessionUUID: uuid.New().String(),
		IsLogging:           true,
		DnsMode:             DnsModeAuto,
		IsDnsGuard:          true,
		IPv6Mode:            IPv6ModeDisable,
	}
}

// DnsServersList returns configured DNS servers (IP literals only)
func (p *Preferences) DnsServersList() []string {
	return helpers.FilterIPLiterals(helpers.SplitIPList(p.DnsServers))
}

func (p *Preferences) IsDnsSwitchEnabled() bool {
	return p.DnsMode == DnsModeAuto
}

func (p *Preferences) IsIPv6LockEnabled() bool {
	return p.IPv6Mode == IPv6ModeDisable
}

func (p *Preferences) getTempFilePath() string {
	return platform.SettingsFile() + ".tmp"
}

// SavePreferences saves preferences
func (p *Preferences) SavePreferences() error {
	mutexRW.Lock()
	defer mutexRW.Unlock()

	p.Version = FormatVersion

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to save preferences file (json marshal error): %w", err)
	}

	settingsFile := platform.SettingsFile()
	settingsFileMode := os.FileMode(0600) // read\write only for privileged user

	// The temporary copy is used to restore the settings when the main file is corrupted
	settingsFileTmp := p.getTempFilePath()
	if err := helpers.WriteFile(settingsFileTmp, data, settingsFileMode); err != nil {
		return err
	}

	if err := helpers.WriteFile(settingsFile, data, settingsFileMode); err != nil {
		return err
	}

	// Remove temp file after successful saving
	os.Remove(settingsFileTmp)
	return nil
}

// LoadPreferences loads preferences
func (p *Preferences) LoadPreferences() error {
	mutexRW.RLock()
	defer mutexRW.RUnlock()

	funcReadPreferences := func(filePath string) error {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read preferences file: %w", err)
		}
		if err = json.Unmarshal(data, p); err != nil {
			return fmt.Errorf("error unmarshaling preferences file: %w", err)
		}
		return nil
	}

	err := funcReadPreferences(platform.SettingsFile())
	if err != nil {
		// Try to read from temp file, if exists
		if errTmp := funcReadPreferences(p.getTempFilePath()); errTmp != nil {
			return err // return original error
		}
		log.Info("Preferences file was restored from temporary file")
	}

	if len(p.SettingsSessionUUID) == 0 {
		p.SettingsSessionUUID = uuid.New().String()
	}
	return nil
}
