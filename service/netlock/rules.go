// Copyright (c) 2025 privateLINE, LLC.

package netlock

import (
	"fmt"

	"github.com/swapnilsparsh/devsVPN/netlock/service/firewall"
)

type ruleGroup struct {
	code       string
	layerToken string
	rule       firewall.Rule
}

func layerTokenFor(isV6 bool) string {
	if isV6 {
		return firewall.LayerTokenIPv6
	}
	return firewall.LayerTokenIPv4
}

// ruleGroups returns firewall rule groups of the lock in the order they are added
func ruleGroups(params LockParams) []ruleGroup {
	groups := []ruleGroup{
		{
			code:       GroupBlockAll,
			layerToken: firewall.LayerTokenAll,
			rule:       firewall.Rule{Name: GroupBlockAll, Action: firewall.ActionBlock, Weight: weightBlock},
		},
		{
			code:       GroupAllowLoopback,
			layerToken: firewall.LayerTokenAll,
			rule: firewall.Rule{Name: GroupAllowLoopback, Action: firewall.ActionPermit, Weight: weightPermit,
				Conditions: []firewall.Condition{{Field: firewall.FieldLoopback, Match: firewall.MatchEqual}}},
		},
	}

	if len(params.TunnelInterface) > 0 {
		groups = append(groups, ruleGroup{
			code:       GroupAllowTunnel,
			layerToken: firewall.LayerTokenAll,
			rule: firewall.Rule{Name: GroupAllowTunnel, Action: firewall.ActionPermit, Weight: weightPermit,
				Conditions: []firewall.Condition{{Field: firewall.FieldLocalInterface, Match: firewall.MatchEqual, Value: params.TunnelInterface}}},
		})
	}

	for _, host := range params.AllowedHosts {
		code := fmt.Sprintf("%s/%s", GroupAllowVpnHosts, host)
		groups = append(groups, ruleGroup{
			code:       code,
			layerToken: layerTokenFor(host.Addr().Is6()),
			rule: firewall.Rule{Name: code, Action: firewall.ActionPermit, Weight: weightPermit,
				Conditions: []firewall.Condition{{Field: firewall.FieldRemoteAddress, Match: firewall.MatchEqual, Value: host.String()}}},
		})
	}

	if params.AllowLAN {
		for _, lan := range lanPrefixes {
			code := fmt.Sprintf("%s/%s", GroupAllowLan, lan)
			groups = append(groups, ruleGroup{
				code:       code,
				layerToken: layerTokenFor(lan.Addr().Is6()),
				rule: firewall.Rule{Name: code, Action: firewall.ActionPermit, Weight: weightPermit,
					Conditions: []firewall.Condition{{Field: firewall.FieldRemoteAddress, Match: firewall.MatchEqual, Value: lan.String()}}},
			})
		}
	}
	return groups
}
