// Copyright (c) 2025 privateLINE, LLC.

package netlock

import (
	"errors"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/swapnilsparsh/devsVPN/netlock/helpers"
	"github.com/swapnilsparsh/devsVPN/netlock/logger"
	"github.com/swapnilsparsh/devsVPN/netlock/netchange"
	"github.com/swapnilsparsh/devsVPN/netlock/netinfo"
	"github.com/swapnilsparsh/devsVPN/netlock/service/dns"
	"github.com/swapnilsparsh/devsVPN/netlock/service/firewall"
	"github.com/swapnilsparsh/devsVPN/netlock/service/ipv6"
)

var log *logger.Logger

func init() {
	log = logger.NewLogger("nlock")
}

var (
	ErrNotHealed     = errors.New("recovery data not processed yet")
	ErrAlreadyLocked = errors.New("network lock is already active")
)

// Rule group codes
const (
	GroupBlockAll      = "block-all"
	GroupAllowLoopback = "allow-loopback"
	GroupAllowTunnel   = "allow-tunnel"
	GroupAllowVpnHosts = "allow-vpn-hosts"
	GroupAllowLan      = "allow-lan"
)

// rule weights: a permit rule must outweigh the block rule
const (
	weightBlock  = 0
	weightPermit = 10
)

var lanPrefixes = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("fe80::/10"),
	netip.MustParsePrefix("fc00::/7"),
}

type Config struct {
	ServiceName string
	// DnsMode "auto" enables DNS switching
	DnsMode string
	// IPv6Mode "disable" enables IPv6 locking
	IPv6Mode string

	IsDnsGuard    bool
	DnsWatchFiles []string
	GuardDebounce time.Duration

	// IsInterfaceWatch - apply DNS and IPv6 lock to interfaces which appear while locked
	IsInterfaceWatch    bool
	InterfaceWatchDelay time.Duration
}

type LockParams struct {
	// comma separated DNS servers; no valid IP address - DNS is not switched
	DnsServers      string
	TunnelInterface string
	// AllowedHosts - VPN servers reachable outside of the tunnel
	AllowedHosts []netip.Prefix
	AllowLAN     bool
}

// Status - current state of the network lock
type Status struct {
	IsHealed    bool
	IsLocked    bool
	RuleGroups  []string
	DnsEntries  []dns.SwitchEntry
	IPv6Entries []ipv6.ModeEntry
}

// Session overrides firewall, DNS and IPv6 configuration while a tunnel is active
// and restores it afterwards (or on the next start after a crash, see Heal()).
type Session struct {
	mutex sync.Mutex

	cfg      Config
	firewall *firewall.Controller
	dns      *dns.SwitchManager
	ipv6     *ipv6.Manager
	guard    *dns.Guard
	ifWatch  *netchange.Detector
	journal  *journal

	isHealed bool
	isLocked bool
}

func New(cfg Config, engine firewall.Engine, ops netinfo.Operations, store Store) *Session {
	if cfg.GuardDebounce <= 0 {
		cfg.GuardDebounce = dns.GuardDebounce
	}

	s := &Session{
		cfg:      cfg,
		firewall: firewall.NewController(engine, cfg.ServiceName),
		journal:  newJournal(store),
	}
	s.dns = dns.NewSwitchManager(ops, cfg.DnsMode, s.journal)
	s.ipv6 = ipv6.NewManager(ops, cfg.IPv6Mode, s.journal)
	if cfg.IsDnsGuard && len(cfg.DnsWatchFiles) > 0 {
		s.guard = dns.NewGuard(cfg.DnsWatchFiles, cfg.GuardDebounce, s.onDnsChanged)
	}
	if cfg.IsInterfaceWatch {
		s.ifWatch = netchange.NewDetector(cfg.InterfaceWatchDelay, s.onInterfacesChanged)
	}
	return s
}

// Heal removes packet-filter rules and restores the configuration left by a previous run
// that did not finish restoration.
// Must be called before Lock(). Restore failures are returned, but the session is usable afterwards.
func (s *Session) Heal() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// rules of a process that exited without Unlock() may still block the traffic
	fwErr := s.firewall.Cleanup()

	dnsEntries, ipv6Entries, err := s.journal.store.Load()
	if err != nil {
		s.isHealed = true
		log.Error("recovery data is unreadable and will be discarded: ", err)
		return errors.Join(fwErr, err, s.journal.clear())
	}

	if len(dnsEntries) == 0 && len(ipv6Entries) == 0 {
		s.isHealed = true
		return fwErr
	}

	log.Warning(fmt.Sprintf("previous session was not finished correctly; restoring %d DNS and %d IPv6 entries", len(dnsEntries), len(ipv6Entries)))
	s.journal.adopt(dnsEntries, ipv6Entries)
	s.dns.Load(dnsEntries)
	s.ipv6.Load(ipv6Entries)

	errs := []error{fwErr, s.dns.Restore(), s.ipv6.Restore(), s.journal.clear()}
	s.isHealed = true
	if err := errors.Join(errs...); err != nil {
		return log.ErrorFE("recovery finished with errors: %w", err)
	}
	log.Info("recovery finished")
	return nil
}

// Lock blocks all traffic except the tunnel, VPN hosts and (optionally) LAN,
// then switches DNS and disables IPv6. On failure everything established is rolled back.
func (s *Session) Lock(params LockParams) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isHealed {
		return ErrNotHealed
	}
	if s.isLocked {
		return ErrAlreadyLocked
	}

	log.Info("Locking...")
	s.isLocked = true
	if err := s.lock(params); err != nil {
		if uerr := s.unlock(); uerr != nil {
			log.Warning("rollback after failed lock: ", uerr)
		}
		return log.ErrorFE("failed to lock network: %w", err)
	}
	log.Info("Locked")
	return nil
}

func (s *Session) lock(params LockParams) error {
	for _, g := range ruleGroups(params) {
		if err := s.firewall.AddRuleGroup(g.code, g.layerToken, g.rule); err != nil {
			return err
		}
	}

	if desired := helpers.CanonicalIPList(params.DnsServers); len(desired) > 0 {
		if err := s.dns.Lock(desired); err != nil {
			return err
		}
	}
	if err := s.ipv6.Lock(); err != nil {
		return err
	}

	if s.guard != nil && s.dns.IsLocked() {
		s.guard.Start()
	}
	if s.ifWatch != nil && (s.dns.IsLocked() || s.ipv6.IsEnabled()) {
		s.ifWatch.Start()
	}
	return nil
}

// Unlock restores DNS and IPv6 configuration and removes firewall rules.
// Teardown always completes; failures are returned joined.
func (s *Session) Unlock() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isLocked {
		return nil
	}
	log.Info("Unlocking...")
	err := s.unlock()
	if err != nil {
		log.Warning("unlocked with errors: ", err)
	} else {
		log.Info("Unlocked")
	}
	return err
}

func (s *Session) unlock() error {
	if s.guard != nil {
		s.guard.Stop()
	}
	if s.ifWatch != nil {
		s.ifWatch.Stop()
	}

	errs := []error{
		s.dns.Restore(),
		s.ipv6.Restore(),
		s.journal.clear(),
		s.firewall.RemoveAll(),
		s.firewall.StopIfIdle(),
	}
	s.isLocked = false
	return errors.Join(errs...)
}

func (s *Session) onDnsChanged() {
	desired := s.dns.Desired()
	if len(desired) == 0 {
		return
	}
	if err := s.dns.Lock(desired); err != nil {
		log.Error("failed to re-apply DNS configuration: ", err)
	}
}

func (s *Session) onInterfacesChanged() {
	if desired := s.dns.Desired(); len(desired) > 0 {
		if err := s.dns.Lock(desired); err != nil {
			log.Error("failed to apply DNS configuration to new interfaces: ", err)
		}
	}
	if err := s.ipv6.Lock(); err != nil {
		log.Error("failed to disable IPv6 on new interfaces: ", err)
	}
}

func (s *Session) IsLocked() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.isLocked
}

func (s *Session) Status() Status {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return Status{
		IsHealed:    s.isHealed,
		IsLocked:    s.isLocked,
		RuleGroups:  s.firewall.Codes(),
		DnsEntries:  s.dns.Entries(),
		IPv6Entries: s.ipv6.Entries(),
	}
}
