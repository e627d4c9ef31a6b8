// Copyright (c) 2025 privateLINE, LLC.

package netlock

import (
	"sync"

	"github.com/swapnilsparsh/devsVPN/netlock/service/dns"
	"github.com/swapnilsparsh/devsVPN/netlock/service/ipv6"
)

// Store - durable storage of outstanding entries
type Store interface {
	Save(dnsEntries []dns.SwitchEntry, ipv6Entries []ipv6.ModeEntry) error
	Load() ([]dns.SwitchEntry, []ipv6.ModeEntry, error)
	Clear() error
}

// journal combines the latest snapshots of both managers and writes them together on every change
type journal struct {
	mutex sync.Mutex
	store Store

	dnsEntries  []dns.SwitchEntry
	ipv6Entries []ipv6.ModeEntry
}

func newJournal(store Store) *journal {
	return &journal{store: store}
}

func (j *journal) SaveDnsEntries(entries []dns.SwitchEntry) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	j.dnsEntries = entries
	return j.store.Save(j.dnsEntries, j.ipv6Entries)
}

func (j *journal) SaveIPv6Entries(entries []ipv6.ModeEntry) error {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	j.ipv6Entries = entries
	return j.store.Save(j.dnsEntries, j.ipv6Entries)
}

// adopt sets snapshots recovered from the store without writing them back
func (j *journal) adopt(dnsEntries []dns.SwitchEntry, ipv6Entries []ipv6.ModeEntry) {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	j.dnsEntries, j.ipv6Entries = dnsEntries, ipv6Entries
}

func (j *journal) clear() error {
	j.mutex.Lock()
	defer j.mutex.Unlock()
	j.dnsEntries, j.ipv6Entries = nil, nil
	return j.store.Clear()
}
