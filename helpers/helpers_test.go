package helpers_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapnilsparsh/devsVPN/netlock/helpers"
)

func TestCanonicalIPList(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"1.1.1.1,1.0.0.1", "1.1.1.1,1.0.0.1"},
		{" 1.1.1.1 , 1.0.0.1 ", "1.1.1.1,1.0.0.1"},
		{"8.8.8.8,not-an-ip,2001:4860:4860::8888", "8.8.8.8,2001:4860:4860::8888"},
		{"There aren't any DNS Servers set on Wi-Fi.", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, helpers.CanonicalIPList(tt.in), "input %q", tt.in)
	}
}

func TestSplitIPList(t *testing.T) {
	assert.Nil(t, helpers.SplitIPList(""))
	assert.Equal(t, []string{"9.9.9.9"}, helpers.SplitIPList("9.9.9.9"))
}

func TestIsIPLiteral(t *testing.T) {
	assert.True(t, helpers.IsIPLiteral("192.168.1.1"))
	assert.True(t, helpers.IsIPLiteral("fe80::1"))
	assert.False(t, helpers.IsIPLiteral("192.168.1.0/24"))
	assert.False(t, helpers.IsIPLiteral("example.com"))
}

func TestWriteFileReplacesAtomically(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "file.xml")

	require.NoError(t, helpers.WriteFile(path, []byte("first"), 0600))
	require.NoError(t, helpers.WriteFile(path, []byte("second"), 0600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
