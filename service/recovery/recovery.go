// Copyright (c) 2025 privateLINE, LLC.

package recovery

import (
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swapnilsparsh/devsVPN/netlock/helpers"
	"github.com/swapnilsparsh/devsVPN/netlock/logger"
	"github.com/swapnilsparsh/devsVPN/netlock/netinfo"
	"github.com/swapnilsparsh/devsVPN/netlock/service/dns"
	"github.com/swapnilsparsh/devsVPN/netlock/service/ipv6"
)

var log *logger.Logger

func init() {
	log = logger.NewLogger("recov")
}

// Example:
//
//	<recovery session="7f0c..." saved="2025-01-02T15:04:05Z">
//	  <DnsSwitch>
//	    <entry name="Wi-Fi" dns="8.8.8.8,8.8.4.4"></entry>
//	  </DnsSwitch>
//	  <IpV6>
//	    <entry interface="Wi-Fi" mode="Automatic" address="" router="" prefix_length=""></entry>
//	  </IpV6>
//	</recovery>
type document struct {
	XMLName xml.Name      `xml:"recovery"`
	Session string        `xml:"session,attr,omitempty"`
	Saved   string        `xml:"saved,attr,omitempty"`
	Dns     []dnsElement  `xml:"DnsSwitch>entry"`
	IPv6    []ipv6Element `xml:"IpV6>entry"`
}

type dnsElement struct {
	Name string `xml:"name,attr"`
	Dns  string `xml:"dns,attr"`
}

type ipv6Element struct {
	Interface    string `xml:"interface,attr"`
	Mode         string `xml:"mode,attr"`
	Address      string `xml:"address,attr"`
	Router       string `xml:"router,attr"`
	PrefixLength string `xml:"prefix_length,attr"`
}

// Store keeps outstanding DNS and IPv6 entries in a file.
// A file left after the process exits means the network configuration was not restored.
type Store struct {
	mutex   sync.Mutex
	path    string
	session string
}

func NewStore(path string) *Store {
	return &Store{path: path, session: uuid.New().String()}
}

func (s *Store) Path() string {
	return s.path
}

// Save replaces the stored snapshot; an empty snapshot removes the file
func (s *Store) Save(dnsEntries []dns.SwitchEntry, ipv6Entries []ipv6.ModeEntry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if len(dnsEntries) == 0 && len(ipv6Entries) == 0 {
		return s.remove()
	}

	doc := document{Session: s.session, Saved: time.Now().UTC().Format(time.RFC3339)}
	for _, e := range dnsEntries {
		doc.Dns = append(doc.Dns, dnsElement{Name: e.Interface, Dns: e.Dns})
	}
	for _, e := range ipv6Entries {
		doc.IPv6 = append(doc.IPv6, ipv6Element{
			Interface:    e.Interface,
			Mode:         string(e.Mode),
			Address:      e.Address,
			Router:       e.Router,
			PrefixLength: e.PrefixLength,
		})
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize recovery data: %w", err)
	}
	data = append([]byte(xml.Header), data...)

	if err := helpers.WriteFile(s.path, data, 0600); err != nil {
		return log.ErrorFE("failed to save recovery file '%s': %w", s.path, err)
	}
	return nil
}

// Load reads the stored snapshot. A missing file is an empty snapshot.
func (s *Store) Load() (dnsEntries []dns.SwitchEntry, ipv6Entries []ipv6.ModeEntry, err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, log.ErrorFE("failed to read recovery file '%s': %w", s.path, err)
	}

	var doc document
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, nil, log.ErrorFE("failed to parse recovery file '%s': %w", s.path, err)
	}

	for _, e := range doc.Dns {
		dnsEntries = append(dnsEntries, dns.SwitchEntry{Interface: e.Name, Dns: e.Dns})
	}
	for _, e := range doc.IPv6 {
		ipv6Entries = append(ipv6Entries, ipv6.ModeEntry{
			Interface:    e.Interface,
			Mode:         netinfo.IPv6Mode(e.Mode),
			Address:      e.Address,
			Router:       e.Router,
			PrefixLength: e.PrefixLength,
		})
	}
	if len(dnsEntries) > 0 || len(ipv6Entries) > 0 {
		log.Info(fmt.Sprintf("recovery data found (session %s, saved %s): %d DNS, %d IPv6 entries", doc.Session, doc.Saved, len(dnsEntries), len(ipv6Entries)))
	}
	return dnsEntries, ipv6Entries, nil
}

// Clear removes the stored snapshot
func (s *Store) Clear() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.remove()
}

func (s *Store) remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return log.ErrorFE("failed to remove recovery file '%s': %w", s.path, err)
	}
	return nil
}
