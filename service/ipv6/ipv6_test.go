package ipv6

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapnilsparsh/devsVPN/netlock/netinfo"
	"github.com/swapnilsparsh/devsVPN/netlock/netinfo/netinfotest"
	"github.com/swapnilsparsh/devsVPN/netlock/service/srverrors"
)

type recordingSaver struct {
	snapshots [][]ModeEntry
}

func (s *recordingSaver) SaveIPv6Entries(entries []ModeEntry) error {
	s.snapshots = append(s.snapshots, entries)
	return nil
}

func (s *recordingSaver) last() []ModeEntry {
	if len(s.snapshots) == 0 {
		return nil
	}
	return s.snapshots[len(s.snapshots)-1]
}

func TestLockRecordsAndDisables(t *testing.T) {
	ops := netinfotest.New("Wi-Fi", "Ethernet")
	ops.IPv6["Wi-Fi"] = netinfo.IPv6Info{Mode: netinfo.IPv6ModeAutomatic, Router: "fe80::1", PrefixLength: "64"}
	ops.IPv6["Ethernet"] = netinfo.IPv6Info{Mode: netinfo.IPv6ModeManual, Address: "2001:db8::10", Router: "2001:db8::1", PrefixLength: "64"}
	saver := &recordingSaver{}
	m := NewManager(ops, ModeDisable, saver)

	require.NoError(t, m.Lock())

	want := []ModeEntry{
		{Interface: "Wi-Fi", Mode: netinfo.IPv6ModeAutomatic},
		{Interface: "Ethernet", Mode: netinfo.IPv6ModeManual, Address: "2001:db8::10", Router: "2001:db8::1", PrefixLength: "64"},
	}
	assert.Equal(t, want, m.Entries())
	assert.Equal(t, want, saver.last())
	assert.Equal(t, netinfo.IPv6ModeOff, ops.IPv6["Wi-Fi"].Mode)
	assert.Equal(t, netinfo.IPv6ModeOff, ops.IPv6["Ethernet"].Mode)
}

func TestLockIsIdempotent(t *testing.T) {
	ops := netinfotest.New("en0")
	ops.IPv6["en0"] = netinfo.IPv6Info{Mode: netinfo.IPv6ModeAutomatic}
	m := NewManager(ops, ModeDisable, &recordingSaver{})

	require.NoError(t, m.Lock())
	require.NoError(t, m.Lock())

	assert.Len(t, m.Entries(), 1)
	assert.Len(t, ops.IPv6CallsFor("en0"), 1)
}

func TestAlreadyOffSkipped(t *testing.T) {
	ops := netinfotest.New("en0")
	ops.IPv6["en0"] = netinfo.IPv6Info{Mode: netinfo.IPv6ModeOff}
	m := NewManager(ops, ModeDisable, &recordingSaver{})

	require.NoError(t, m.Lock())
	assert.Empty(t, m.Entries())
	assert.Empty(t, ops.IPv6Calls)
}

func TestBlankModeWithAddressIsLinkLocal(t *testing.T) {
	ops := netinfotest.New("en0")
	ops.IPv6["en0"] = netinfo.IPv6Info{Address: "fe80::1c2b:3cff:fe4d:5e6f"}
	m := NewManager(ops, ModeDisable, &recordingSaver{})

	require.NoError(t, m.Lock())
	require.Len(t, m.Entries(), 1)
	assert.Equal(t, netinfo.IPv6ModeLinkLocal, m.Entries()[0].Mode)

	require.NoError(t, m.Restore())
	assert.Equal(t, netinfo.IPv6ModeLinkLocal, ops.IPv6["en0"].Mode)
}

func TestUnknownModeRestoresAutomatic(t *testing.T) {
	ops := netinfotest.New("en0")
	ops.FailGetIPv6["en0"] = true
	m := NewManager(ops, ModeDisable, &recordingSaver{})

	require.NoError(t, m.Lock())
	assert.Equal(t, []ModeEntry{{Interface: "en0"}}, m.Entries())

	require.NoError(t, m.Restore())
	assert.Equal(t, netinfo.IPv6ModeAutomatic, ops.IPv6["en0"].Mode)
}

func TestManualRestore(t *testing.T) {
	ops := netinfotest.New("en0")
	ops.IPv6["en0"] = netinfo.IPv6Info{Mode: netinfo.IPv6ModeManual, Address: "2001:db8::10", Router: "2001:db8::1", PrefixLength: "64"}
	m := NewManager(ops, ModeDisable, &recordingSaver{})

	require.NoError(t, m.Lock())
	require.NoError(t, m.Restore())

	calls := ops.IPv6CallsFor("en0")
	require.Len(t, calls, 2)
	assert.Equal(t, netinfotest.IPv6Call{Interface: "en0", Mode: netinfo.IPv6ModeManual, Address: "2001:db8::10", PrefixLength: "64", Router: "2001:db8::1"}, calls[1])
}

func TestRestoreIsBestEffort(t *testing.T) {
	ops := netinfotest.New("en0", "en1")
	ops.IPv6["en0"] = netinfo.IPv6Info{Mode: netinfo.IPv6ModeAutomatic}
	ops.IPv6["en1"] = netinfo.IPv6Info{Mode: netinfo.IPv6ModeAutomatic}
	saver := &recordingSaver{}
	m := NewManager(ops, ModeDisable, saver)
	require.NoError(t, m.Lock())

	ops.FailSetIPv6["en0"] = true
	err := m.Restore()

	var rerr *srverrors.RestoreError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "en0", rerr.Interface)
	assert.Equal(t, srverrors.RestoreKindIPv6, rerr.Kind)
	assert.Equal(t, netinfo.IPv6ModeAutomatic, ops.IPv6["en1"].Mode)
	assert.Empty(t, m.Entries())
	assert.Empty(t, saver.last())
}

func TestDisabledModeDoesNothing(t *testing.T) {
	ops := netinfotest.New("en0")
	m := NewManager(ops, "enable", &recordingSaver{})
	require.NoError(t, m.Lock())
	assert.Empty(t, ops.IPv6Calls)
}

func TestLoadDropsRouterForNonManual(t *testing.T) {
	m := NewManager(netinfotest.New(), ModeDisable, nil)
	m.Load([]ModeEntry{{Interface: "en0", Mode: netinfo.IPv6ModeAutomatic, Router: "fe80::1", PrefixLength: "64"}})
	assert.Equal(t, []ModeEntry{{Interface: "en0", Mode: netinfo.IPv6ModeAutomatic}}, m.Entries())
}
