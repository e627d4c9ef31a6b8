package preferences

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapnilsparsh/devsVPN/netlock/service/platform"
)

func useTempSettings(t *testing.T) string {
	file := filepath.Join(t.TempDir(), "netlock.json")
	old := platform.SettingsFile()
	platform.Override(file, "", "")
	t.Cleanup(func() { platform.Override(old, "", "") })
	return file
}

func TestSaveLoad(t *testing.T) {
	file := useTempSettings(t)

	p := Create()
	p.DnsServers = "1.1.1.1, 1.0.0.1"
	p.AllowLAN = true
	require.NoError(t, p.SavePreferences())

	_, err := os.Stat(file + ".tmp")
	assert.True(t, os.IsNotExist(err))

	loaded := &Preferences{}
	require.NoError(t, loaded.LoadPreferences())
	assert.Equal(t, *p, *loaded)
	assert.Equal(t, []string{"1.1.1.1", "1.0.0.1"}, loaded.DnsServersList())
	assert.True(t, loaded.IsDnsSwitchEnabled())
	assert.True(t, loaded.IsIPv6LockEnabled())
}

func TestLoadFallsBackToTempFile(t *testing.T) {
	file := useTempSettings(t)

	p := Create()
	p.DnsMode = "off"
	require.NoError(t, p.SavePreferences())
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(file+".tmp", data, 0600))
	require.NoError(t, os.WriteFile(file, []byte("{corrupted"), 0600))

	loaded := &Preferences{}
	require.NoError(t, loaded.LoadPreferences())
	assert.False(t, loaded.IsDnsSwitchEnabled())
	assert.Equal(t, p.SettingsSessionUUID, loaded.SettingsSessionUUID)
}

func TestLoadMissing(t *testing.T) {
	useTempSettings(t)
	assert.Error(t, (&Preferences{}).LoadPreferences())
}
