package rageshake

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapnilsparsh/devsVPN/netlock/netinfo"
	"github.com/swapnilsparsh/devsVPN/netlock/netinfo/netinfotest"
)

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "netlock.log")
	require.NoError(t, os.WriteFile(logFile, []byte(strings.Repeat("x", MaxLogTail)+"last line\n"), 0600))

	ops := netinfotest.New("en0", "en1")
	ops.Dns["en0"] = []string{"8.8.8.8"}
	ops.IPv6["en0"] = netinfo.IPv6Info{Mode: netinfo.IPv6ModeAutomatic}
	ops.FailGetDns["en1"] = true

	r := New(ops, logFile, filepath.Join(dir, "missing.xml"), func() interface{} { return map[string]bool{"locked": true} })
	report := r.Collect("test")

	assert.Equal(t, "test", report.Reason)
	assert.Empty(t, report.Recovery)
	assert.Len(t, report.LogTail, MaxLogTail)
	assert.True(t, strings.HasSuffix(report.LogTail, "last line\n"))
	require.Len(t, report.Network, 2)
	assert.Equal(t, []string{"8.8.8.8"}, report.Network[0].DnsServers)
	assert.Equal(t, "Automatic", report.Network[0].IPv6Mode)
	assert.Contains(t, report.Network[1].Error, "dns:")
	assert.Equal(t, map[string]bool{"locked": true}, report.Lock)
}

func TestCollectListFailure(t *testing.T) {
	ops := netinfotest.New()
	ops.FailList = true
	report := New(ops, "", "", nil).Collect("test")
	require.Len(t, report.Network, 1)
	assert.Contains(t, report.Network[0].Error, "failed to enumerate interfaces")
	assert.Nil(t, report.Lock)
}

func TestSaveAndCleanup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")
	path, err := Save(New(nil, "", "", nil).Collect("panic"), dir)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "panic", decoded.Reason)

	unrelated := filepath.Join(dir, "other.json")
	require.NoError(t, os.WriteFile(unrelated, nil, 0600))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	require.NoError(t, os.Chtimes(unrelated, old, old))

	require.NoError(t, CleanupOld(dir, 24*time.Hour))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(unrelated)
	assert.NoError(t, err)

	assert.NoError(t, CleanupOld(filepath.Join(dir, "missing"), time.Hour))
}
