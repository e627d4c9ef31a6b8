// Copyright (c) 2025 privateLINE, LLC.

package ipv6

import (
	"errors"
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/swapnilsparsh/devsVPN/netlock/logger"
	"github.com/swapnilsparsh/devsVPN/netlock/metrics"
	"github.com/swapnilsparsh/devsVPN/netlock/netinfo"
	"github.com/swapnilsparsh/devsVPN/netlock/service/srverrors"
)

var log *logger.Logger

func init() {
	log = logger.NewLogger("ipv6")
}

// ModeDisable - the only mode in which IPv6 is disabled on interfaces
const ModeDisable = "disable"

// ModeEntry - IPv6 configuration of an interface before IPv6 was disabled.
// Router and PrefixLength are set only for netinfo.IPv6ModeManual.
type ModeEntry struct {
	Interface    string
	Mode         netinfo.IPv6Mode
	Address      string
	Router       string
	PrefixLength string
}

// EntriesSaver persists outstanding entries; called after every change
type EntriesSaver interface {
	SaveIPv6Entries(entries []ModeEntry) error
}

// Manager disables IPv6 on all interfaces and restores the original mode on demand
type Manager struct {
	mutex sync.Mutex

	ops   netinfo.Operations
	mode  string
	saver EntriesSaver

	entries    []ModeEntry
	interfaces mapset.Set[string]

	metrics *metrics.Registry
}

func NewManager(ops netinfo.Operations, mode string, saver EntriesSaver) *Manager {
	return &Manager{
		ops:        ops,
		mode:       mode,
		saver:      saver,
		interfaces: mapset.NewThreadUnsafeSet[string](),
		metrics:    metrics.Get(),
	}
}

func (m *Manager) IsEnabled() bool {
	return m.mode == ModeDisable
}

// entryFromInfo normalizes the reported configuration: blank mode with an address is LinkLocal
func entryFromInfo(iface string, info netinfo.IPv6Info) ModeEntry {
	e := ModeEntry{Interface: iface, Mode: info.Mode, Address: info.Address}
	if e.Mode == netinfo.IPv6ModeUnknown && len(e.Address) > 0 {
		e.Mode = netinfo.IPv6ModeLinkLocal
	}
	if e.Mode == netinfo.IPv6ModeManual {
		e.Router = info.Router
		e.PrefixLength = info.PrefixLength
	}
	return e
}

// Lock disables IPv6 on every interface where it is not already off.
// The original configuration is recorded and persisted before the interface is changed.
func (m *Manager) Lock() error {
	if !m.IsEnabled() {
		return nil
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	interfaces, err := m.ops.ListInterfaces()
	if err != nil {
		return log.ErrorFE("failed to enumerate interfaces: %w", err)
	}

	for _, iface := range interfaces {
		info, err := m.ops.GetIPv6Info(iface)
		if err != nil {
			log.Warning(fmt.Sprintf("unable to read IPv6 configuration of '%s' (treated as unknown): %v", iface, err))
			info = netinfo.IPv6Info{}
		}

		entry := entryFromInfo(iface, info)
		if entry.Mode == netinfo.IPv6ModeOff {
			continue
		}

		if !m.interfaces.Contains(iface) {
			m.entries = append(m.entries, entry)
			m.interfaces.Add(iface)
			if err := m.save(); err != nil {
				return err
			}
		}

		log.Info(fmt.Sprintf("IPv6 disable '%s' (was '%s')", iface, entry.Mode))
		if err := m.ops.SetIPv6Mode(iface, netinfo.IPv6ModeOff, "", "", ""); err != nil {
			return log.ErrorFE("failed to disable IPv6 on '%s': %w", iface, err)
		}
	}
	return nil
}

func (m *Manager) restoreEntry(e ModeEntry) error {
	switch e.Mode {
	case netinfo.IPv6ModeOff, netinfo.IPv6ModeAutomatic, netinfo.IPv6ModeLinkLocal:
		return m.ops.SetIPv6Mode(e.Interface, e.Mode, "", "", "")
	case netinfo.IPv6ModeManual:
		return m.ops.SetIPv6Mode(e.Interface, e.Mode, e.Address, e.PrefixLength, e.Router)
	default:
		// the original mode is unknown: fall back to the platform default
		return m.ops.SetIPv6Mode(e.Interface, netinfo.IPv6ModeAutomatic, "", "", "")
	}
}

// Restore applies the recorded mode to every interface.
// A failure on one interface does not stop restoring the others; all failures are returned joined.
func (m *Manager) Restore() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var errs []error
	for len(m.entries) > 0 {
		e := m.entries[0]
		if err := m.restoreEntry(e); err != nil {
			rerr := &srverrors.RestoreError{Kind: srverrors.RestoreKindIPv6, Interface: e.Interface, Err: err}
			log.Warning(rerr)
			m.metrics.RestoreFailures.WithLabelValues(string(srverrors.RestoreKindIPv6)).Inc()
			errs = append(errs, rerr)
		} else {
			log.Info(fmt.Sprintf("IPv6 restored '%s': '%s'", e.Interface, e.Mode))
		}

		m.entries = m.entries[1:]
		m.interfaces.Remove(e.Interface)
		if err := m.save(); err != nil {
			errs = append(errs, err)
		}
	}
	m.entries = nil
	return errors.Join(errs...)
}

// Load adopts entries recovered from storage (they are already persisted)
func (m *Manager) Load(entries []ModeEntry) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.entries = nil
	m.interfaces.Clear()
	for _, e := range entries {
		if m.interfaces.Contains(e.Interface) {
			continue
		}
		if e.Mode != netinfo.IPv6ModeManual {
			e.Router, e.PrefixLength = "", ""
		}
		m.entries = append(m.entries, e)
		m.interfaces.Add(e.Interface)
	}
	m.metrics.IPv6Entries.Set(float64(len(m.entries)))
}

// Entries returns a copy of outstanding entries in recording order
func (m *Manager) Entries() []ModeEntry {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.copyEntries()
}

func (m *Manager) copyEntries() []ModeEntry {
	return append([]ModeEntry{}, m.entries...)
}

func (m *Manager) save() error {
	m.metrics.IPv6Entries.Set(float64(len(m.entries)))
	if m.saver == nil {
		return nil
	}
	if err := m.saver.SaveIPv6Entries(m.copyEntries()); err != nil {
		return log.ErrorFE("failed to save IPv6 recovery entries: %w", err)
	}
	return nil
}
