// Copyright (c) 2025 privateLINE, LLC.

package firewall

import (
	"fmt"
	"strings"
)

// Layer tokens accepted by AddRuleGroup in addition to literal layer names
const (
	LayerTokenAll  = "all"
	LayerTokenIPv4 = "ipv4"
	LayerTokenIPv6 = "ipv6"
)

// Concrete layers
const (
	LayerRecvAcceptV4      = "ale_auth_recv_accept_v4"
	LayerRecvAcceptV6      = "ale_auth_recv_accept_v6"
	LayerConnectV4         = "ale_auth_connect_v4"
	LayerConnectV6         = "ale_auth_connect_v6"
	LayerFlowEstablishedV4 = "ale_flow_established_v4"
	LayerFlowEstablishedV6 = "ale_flow_established_v6"
)

var (
	layersIPv4 = []string{LayerRecvAcceptV4, LayerConnectV4, LayerFlowEstablishedV4}
	layersIPv6 = []string{LayerRecvAcceptV6, LayerConnectV6, LayerFlowEstablishedV6}
)

// ExpandLayers converts layer token into the list of concrete layers.
// Unknown token is returned as a single literal layer.
func ExpandLayers(token string) []string {
	switch token {
	case LayerTokenAll:
		return []string{LayerRecvAcceptV4, LayerRecvAcceptV6, LayerConnectV4, LayerConnectV6, LayerFlowEstablishedV4, LayerFlowEstablishedV6}
	case LayerTokenIPv4:
		return append([]string{}, layersIPv4...)
	case LayerTokenIPv6:
		return append([]string{}, layersIPv6...)
	default:
		return []string{token}
	}
}

// IsIPv6Layer returns true for layers evaluated on IPv6 traffic
func IsIPv6Layer(layer string) bool {
	return strings.HasSuffix(layer, "_v6")
}

type Action string

const (
	ActionPermit Action = "permit"
	ActionBlock  Action = "block"
)

type Field string

const (
	FieldRemoteAddress  Field = "ip_remote_address"
	FieldRemotePort     Field = "ip_remote_port"
	FieldProtocol       Field = "ip_protocol"
	FieldLocalInterface Field = "ip_local_interface"
	FieldLoopback       Field = "loopback"
)

type Match string

const (
	MatchEqual    Match = "equal"
	MatchNotEqual Match = "not_equal"
)

// Condition - rule is applied only to the traffic satisfying all its conditions.
// Value formats: address as IP or CIDR, port as number, protocol as "tcp"/"udp"/"icmp", interface as name.
// FieldLoopback takes no value.
type Condition struct {
	Field Field
	Match Match
	Value string
}

// Rule - packet-filter rule specification
type Rule struct {
	Name       string
	Layer      string
	Action     Action
	Weight     uint64
	Conditions []Condition
}

// WithLayer returns a copy of the rule with the layer substituted
func (r Rule) WithLayer(layer string) Rule {
	ret := r
	ret.Layer = layer
	if r.Conditions != nil {
		ret.Conditions = append([]Condition(nil), r.Conditions...)
	}
	return ret
}

func (r Rule) String() string {
	conds := make([]string, 0, len(r.Conditions))
	for _, c := range r.Conditions {
		conds = append(conds, fmt.Sprintf("%s %s %s", c.Field, c.Match, c.Value))
	}
	return fmt.Sprintf("%s: %s @%s [%s]", r.Name, r.Action, r.Layer, strings.Join(conds, "; "))
}
