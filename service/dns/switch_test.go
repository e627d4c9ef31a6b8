package dns

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapnilsparsh/devsVPN/netlock/netinfo/netinfotest"
	"github.com/swapnilsparsh/devsVPN/netlock/service/srverrors"
)

type recordingSaver struct {
	snapshots [][]SwitchEntry
	fail      bool
}

func (s *recordingSaver) SaveDnsEntries(entries []SwitchEntry) error {
	if s.fail {
		return errors.New("disk full")
	}
	s.snapshots = append(s.snapshots, entries)
	return nil
}

func (s *recordingSaver) last() []SwitchEntry {
	if len(s.snapshots) == 0 {
		return nil
	}
	return s.snapshots[len(s.snapshots)-1]
}

func TestLockRestoreRoundTrip(t *testing.T) {
	ops := netinfotest.New("en0")
	ops.Dns["en0"] = []string{"8.8.8.8"}
	saver := &recordingSaver{}
	m := NewSwitchManager(ops, ModeAuto, saver)

	require.NoError(t, m.Lock("1.1.1.1,1.0.0.1"))
	assert.Equal(t, []SwitchEntry{{Interface: "en0", Dns: "8.8.8.8"}}, m.Entries())
	assert.Equal(t, m.Entries(), saver.last())
	assert.Equal(t, []string{"1.1.1.1", "1.0.0.1"}, ops.Dns["en0"])
	assert.True(t, m.IsLocked())

	require.NoError(t, m.Restore())
	assert.Equal(t, []string{"8.8.8.8"}, ops.Dns["en0"])
	assert.Empty(t, m.Entries())
	assert.Empty(t, saver.last())
	assert.False(t, m.IsLocked())
}

func TestAutomaticRoundTrip(t *testing.T) {
	ops := netinfotest.New("eth0")
	m := NewSwitchManager(ops, ModeAuto, &recordingSaver{})

	require.NoError(t, m.Lock("9.9.9.9"))
	assert.Equal(t, []SwitchEntry{{Interface: "eth0", Dns: ""}}, m.Entries())

	require.NoError(t, m.Restore())
	calls := ops.DnsCallsFor("eth0")
	require.Len(t, calls, 2)
	assert.Equal(t, []string{"9.9.9.9"}, calls[0].Servers)
	assert.Nil(t, calls[1].Servers)
}

func TestLockSkipsInterfacesAlreadyOnDesired(t *testing.T) {
	ops := netinfotest.New("en0", "en1")
	ops.Dns["en0"] = []string{"1.1.1.1"}
	ops.Dns["en1"] = []string{"192.168.1.1"}
	m := NewSwitchManager(ops, ModeAuto, &recordingSaver{})

	require.NoError(t, m.Lock(" 1.1.1.1 "))
	assert.Equal(t, []SwitchEntry{{Interface: "en1", Dns: "192.168.1.1"}}, m.Entries())
	assert.Empty(t, ops.DnsCallsFor("en0"))
}

func TestLockReentryKeepsOriginal(t *testing.T) {
	ops := netinfotest.New("en0")
	ops.Dns["en0"] = []string{"8.8.8.8"}
	m := NewSwitchManager(ops, ModeAuto, &recordingSaver{})

	require.NoError(t, m.Lock("1.1.1.1"))
	ops.Dns["en0"] = []string{"10.0.0.1"} // changed by someone else
	require.NoError(t, m.Lock("1.1.1.1"))

	assert.Equal(t, []SwitchEntry{{Interface: "en0", Dns: "8.8.8.8"}}, m.Entries())
	assert.Equal(t, []string{"1.1.1.1"}, ops.Dns["en0"])
}

func TestReadFailureTreatedAsAutomatic(t *testing.T) {
	ops := netinfotest.New("en0")
	ops.FailGetDns["en0"] = true
	m := NewSwitchManager(ops, ModeAuto, &recordingSaver{})

	require.NoError(t, m.Lock("1.1.1.1"))
	assert.Equal(t, []SwitchEntry{{Interface: "en0", Dns: ""}}, m.Entries())
}

func TestNonIPValuesFiltered(t *testing.T) {
	ops := netinfotest.New("en0")
	ops.Dns["en0"] = []string{"There aren't any DNS Servers set on en0."}
	m := NewSwitchManager(ops, ModeAuto, &recordingSaver{})

	require.NoError(t, m.Lock("1.1.1.1"))
	assert.Equal(t, "", m.Entries()[0].Dns)
}

func TestInvalidDesiredListDoesNothing(t *testing.T) {
	for _, desired := range []string{"bogus", " ", ",,", "dns.example.com"} {
		ops := netinfotest.New("en0")
		ops.Dns["en0"] = []string{"8.8.8.8"}
		saver := &recordingSaver{}
		m := NewSwitchManager(ops, ModeAuto, saver)

		require.NoError(t, m.Lock(desired), desired)
		assert.Empty(t, ops.DnsCalls, desired)
		assert.Empty(t, saver.snapshots, desired)
		assert.False(t, m.IsLocked(), desired)
		assert.Equal(t, []string{"8.8.8.8"}, ops.Dns["en0"], desired)
	}
}

func TestDisabledModeDoesNothing(t *testing.T) {
	ops := netinfotest.New("en0")
	m := NewSwitchManager(ops, "off", &recordingSaver{})

	require.NoError(t, m.Lock("1.1.1.1"))
	assert.Empty(t, ops.DnsCalls)
	assert.Empty(t, m.Entries())
}

func TestSaveFailureAbortsBeforeChange(t *testing.T) {
	ops := netinfotest.New("en0")
	m := NewSwitchManager(ops, ModeAuto, &recordingSaver{fail: true})

	assert.Error(t, m.Lock("1.1.1.1"))
	assert.Empty(t, ops.DnsCalls)
}

func TestRestoreIsBestEffort(t *testing.T) {
	ops := netinfotest.New("en0", "en1", "en2")
	ops.Dns["en0"] = []string{"8.8.8.8"}
	ops.Dns["en1"] = []string{"8.8.4.4"}
	ops.Dns["en2"] = []string{"4.4.4.4"}
	saver := &recordingSaver{}
	m := NewSwitchManager(ops, ModeAuto, saver)
	require.NoError(t, m.Lock("1.1.1.1"))

	ops.FailSetDns["en1"] = true
	err := m.Restore()

	var rerr *srverrors.RestoreError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "en1", rerr.Interface)
	assert.Equal(t, srverrors.RestoreKindDns, rerr.Kind)
	assert.Equal(t, []string{"8.8.8.8"}, ops.Dns["en0"])
	assert.Equal(t, []string{"4.4.4.4"}, ops.Dns["en2"])
	assert.Empty(t, m.Entries())
	assert.Empty(t, saver.last())
}

func TestLoadAndRestore(t *testing.T) {
	ops := netinfotest.New("en0")
	m := NewSwitchManager(ops, ModeAuto, &recordingSaver{})

	m.Load([]SwitchEntry{{Interface: "en0", Dns: "8.8.8.8, 8.8.4.4"}, {Interface: "en0", Dns: "1.1.1.1"}})
	assert.Equal(t, []SwitchEntry{{Interface: "en0", Dns: "8.8.8.8,8.8.4.4"}}, m.Entries())

	require.NoError(t, m.Restore())
	assert.Equal(t, []string{"8.8.8.8", "8.8.4.4"}, ops.Dns["en0"])
}
