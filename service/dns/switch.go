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

package dns

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/swapnilsparsh/devsVPN/netlock/helpers"
	"github.com/swapnilsparsh/devsVPN/netlock/logger"
	"github.com/swapnilsparsh/devsVPN/netlock/metrics"
	"github.com/swapnilsparsh/devsVPN/netlock/netinfo"
	"github.com/swapnilsparsh/devsVPN/netlock/service/srverrors"
)

var log *logger.Logger

func init() {
	log = logger.NewLogger("dns")
}

// ModeAuto - the only mode in which DNS servers are switched
const ModeAuto = "auto"

// SwitchEntry - DNS configuration of an interface before it was switched.
// Dns is a canonical comma separated list; empty means "automatic".
type SwitchEntry struct {
	Interface string
	Dns       string
}

// EntriesSaver persists outstanding entries; called after every change
type EntriesSaver interface {
	SaveDnsEntries(entries []SwitchEntry) error
}

// SwitchManager overrides DNS servers of all interfaces and restores them on demand
type SwitchManager struct {
	mutex sync.Mutex

	ops   netinfo.Operations
	mode  string
	saver EntriesSaver

	entries    []SwitchEntry
	interfaces mapset.Set[string]
	desired    string
	isLocked   bool

	metrics *metrics.Registry
}

func NewSwitchManager(ops netinfo.Operations, mode string, saver EntriesSaver) *SwitchManager {
	return &SwitchManager{
		ops:        ops,
		mode:       mode,
		saver:      saver,
		interfaces: mapset.NewThreadUnsafeSet[string](),
		metrics:    metrics.Get(),
	}
}

func (m *SwitchManager) IsEnabled() bool {
	return m.mode == ModeAuto
}

// Lock applies desired DNS servers (comma separated) to every interface having different ones.
// The original configuration of an interface is recorded and persisted before it is changed;
// an interface already recorded keeps its original entry.
func (m *SwitchManager) Lock(desired string) error {
	if !m.IsEnabled() {
		return nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	desired = helpers.CanonicalIPList(desired)
	if len(desired) == 0 {
		log.Warning("DNS not switched: no valid DNS server address")
		return nil
	}

	interfaces, err := m.ops.ListInterfaces()
	if err != nil {
		return log.ErrorFE("failed to enumerate interfaces: %w", err)
	}

	m.desired = desired
	m.isLocked = true

	for _, iface := range interfaces {
		current := m.currentDns(iface)
		if current == desired {
			continue
		}

		if !m.interfaces.Contains(iface) {
			m.entries = append(m.entries, SwitchEntry{Interface: iface, Dns: current})
			m.interfaces.Add(iface)
			if err := m.save(); err != nil {
				return err
			}
		}

		log.Info(fmt.Sprintf("DNS switch '%s': [%s] -> [%s]", iface, current, desired))
		if err := m.ops.SetDnsServers(iface, helpers.SplitIPList(desired)); err != nil {
			return log.ErrorFE("failed to switch DNS of '%s': %w", iface, err)
		}
	}
	return nil
}

// currentDns returns canonical list of DNS servers; read failure is treated as "automatic"
func (m *SwitchManager) currentDns(iface string) string {
	servers, err := m.ops.GetDnsServers(iface)
	if err != nil {
		log.Warning(fmt.Sprintf("unable to read DNS of '%s' (treated as automatic): %v", iface, err))
		return ""
	}
	return strings.Join(helpers.FilterIPLiterals(servers), ",")
}

// Restore applies the recorded configuration to every interface.
// A failure on one interface does not stop restoring the others; all failures are returned joined.
func (m *SwitchManager) Restore() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var errs []error
	for len(m.entries) > 0 {
		e := m.entries[0]
		if err := m.ops.SetDnsServers(e.Interface, helpers.SplitIPList(e.Dns)); err != nil {
			rerr := &srverrors.RestoreError{Kind: srverrors.RestoreKindDns, Interface: e.Interface, Err: err}
			log.Warning(rerr)
			m.metrics.RestoreFailures.WithLabelValues(string(srverrors.RestoreKindDns)).Inc()
			errs = append(errs, rerr)
		} else if len(e.Dns) == 0 {
			log.Info(fmt.Sprintf("DNS restored '%s': automatic", e.Interface))
		} else {
			log.Info(fmt.Sprintf("DNS restored '%s': [%s]", e.Interface, e.Dns))
		}

		m.entries = m.entries[1:]
		m.interfaces.Remove(e.Interface)
		if err := m.save(); err != nil {
			errs = append(errs, err)
		}
	}

	m.entries = nil
	m.desired = ""
	m.isLocked = false
	return errors.Join(errs...)
}

// Load adopts entries recovered from storage (they are already persisted)
func (m *SwitchManager) Load(entries []SwitchEntry) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.entries = nil
	m.interfaces.Clear()
	for _, e := range entries {
		if m.interfaces.Contains(e.Interface) {
			continue
		}
		m.entries = append(m.entries, SwitchEntry{Interface: e.Interface, Dns: helpers.CanonicalIPList(e.Dns)})
		m.interfaces.Add(e.Interface)
	}
	m.metrics.DnsEntries.Set(float64(len(m.entries)))
}

// Entries returns a copy of outstanding entries in recording order
func (m *SwitchManager) Entries() []SwitchEntry {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.copyEntries()
}

// Desired returns canonical list applied by the last Lock
func (m *SwitchManager) Desired() string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.desired
}

func (m *SwitchManager) IsLocked() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.isLocked
}

func (m *SwitchManager) copyEntries() []SwitchEntry {
	return append([]SwitchEntry{}, m.entries...)
}

func (m *SwitchManager) save() error {
	m.metrics.DnsEntries.Set(float64(len(m.entries)))
	if m.saver == nil {
		return nil
	}
	if err := m.saver.SaveDnsEntries(m.copyEntries()); err != nil {
		return log.ErrorFE("failed to save DNS recovery entries: %w", err)
	}
	return nil
}
