package firewall

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPfRuleLine(t *testing.T) {
	tests := []struct {
		rule Rule
		want string
	}{
		{
			Rule{Name: "block-all", Layer: LayerConnectV4, Action: ActionBlock},
			`block drop out inet all label "block-all"`,
		},
		{
			Rule{Layer: LayerRecvAcceptV6, Action: ActionPermit, Conditions: []Condition{{Field: FieldLoopback, Match: MatchEqual}}},
			`pass in quick on lo0 inet6 all`,
		},
		{
			Rule{Layer: LayerConnectV4, Action: ActionPermit, Conditions: []Condition{
				{Field: FieldRemoteAddress, Match: MatchEqual, Value: "1.2.3.4"},
				{Field: FieldRemotePort, Match: MatchEqual, Value: "51820"},
				{Field: FieldProtocol, Match: MatchEqual, Value: "udp"},
			}},
			`pass out quick inet proto udp from any to 1.2.3.4/32 port = 51820`,
		},
		{
			Rule{Layer: LayerRecvAcceptV4, Action: ActionPermit, Conditions: []Condition{
				{Field: FieldRemoteAddress, Match: MatchEqual, Value: "192.168.0.0/16"},
				{Field: FieldLocalInterface, Match: MatchNotEqual, Value: "utun4"},
			}},
			`pass in quick on ! utun4 inet from 192.168.0.0/16 to any`,
		},
		{
			Rule{Layer: LayerConnectV6, Action: ActionBlock, Conditions: []Condition{{Field: FieldRemotePort, Match: MatchEqual, Value: "53"}}},
			`block drop out inet6 proto { tcp udp } from any to any port = 53`,
		},
	}

	for _, tt := range tests {
		got, err := pfRuleLine(tt.rule)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestPfRuleLineErrors(t *testing.T) {
	_, err := pfRuleLine(Rule{Layer: "bogus"})
	assert.Error(t, err)

	_, err = pfRuleLine(Rule{Layer: LayerConnectV6, Conditions: []Condition{{Field: FieldRemoteAddress, Value: "10.0.0.1"}}})
	assert.Error(t, err)
}

func TestParsePfToken(t *testing.T) {
	assert.Equal(t, "18446742974349643455", parsePfToken("pf enabled\nToken : 18446742974349643455\n"))
	assert.Empty(t, parsePfToken("pfctl: pf already enabled\n"))
}
