package firewall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrefix(t *testing.T) {
	p, err := parsePrefix("10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1/32", p.String())

	p, err = parsePrefix("fd00::/8")
	require.NoError(t, err)
	assert.Equal(t, 8, p.Bits())

	_, err = parsePrefix("not-an-ip")
	assert.Error(t, err)
}

func TestPrefixMask(t *testing.T) {
	p, _ := parsePrefix("192.168.0.0/20")
	assert.Equal(t, []byte{0xff, 0xff, 0xf0, 0x00}, prefixMask(p))
}

func TestProtocolNumber(t *testing.T) {
	n, err := protocolNumber("UDP", false)
	require.NoError(t, err)
	assert.Equal(t, byte(17), n)

	n, _ = protocolNumber("icmp", true)
	assert.Equal(t, byte(58), n)

	_, err = protocolNumber("sctp", false)
	assert.Error(t, err)
}
