// Copyright (c) 2025 privateLINE, LLC.

package firewall

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/tailscale/wf"
	"golang.org/x/sys/windows"
	"golang.zx2c4.com/wireguard/windows/tunnel/winipcfg"
)

// wfpEngine - Windows Filtering Platform backend.
// The session is dynamic: all objects are removed by the system when the session is closed or the process exits.
type wfpEngine struct {
	mutex sync.Mutex

	name       string
	providerID wf.ProviderID
	sublayerID wf.SublayerID

	session   *wf.Session
	rules     map[uint64]wf.RuleID
	lastID    uint64
	lastError string
}

var wfpLayers = map[string]wf.LayerID{
	LayerRecvAcceptV4:      wf.LayerALEAuthRecvAcceptV4,
	LayerRecvAcceptV6:      wf.LayerALEAuthRecvAcceptV6,
	LayerConnectV4:         wf.LayerALEAuthConnectV4,
	LayerConnectV6:         wf.LayerALEAuthConnectV6,
	LayerFlowEstablishedV4: wf.LayerALEFlowEstablishedV4,
	LayerFlowEstablishedV6: wf.LayerALEFlowEstablishedV6,
}

func newEngine() Engine {
	return &wfpEngine{rules: make(map[uint64]wf.RuleID)}
}

// guidFromName returns a stable GUID for the given name
func guidFromName(name string) windows.GUID {
	g, _ := windows.GUIDFromString("{" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String() + "}")
	return g
}

func newRuleGUID() (windows.GUID, error) {
	return windows.GUIDFromString("{" + uuid.New().String() + "}")
}

func (e *wfpEngine) fail(err error) error {
	e.lastError = err.Error()
	return err
}

func (e *wfpEngine) Init(serviceName string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.name = serviceName
	e.providerID = wf.ProviderID(guidFromName(serviceName + "/provider"))
	e.sublayerID = wf.SublayerID(guidFromName(serviceName + "/sublayer"))
	return nil
}

func (e *wfpEngine) Start(desc ServiceDescriptor) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.session != nil {
		return nil
	}

	weight := uint16(0x0F)
	if desc.Weight == WeightMax {
		weight = 0xFFFF
	} else if w, err := strconv.ParseUint(desc.Weight, 10, 16); err == nil {
		weight = uint16(w)
	}

	sess, err := wf.New(&wf.Options{
		Name:        e.name,
		Description: desc.Description,
		Dynamic:     true,
	})
	if err != nil {
		return e.fail(fmt.Errorf("open WFP session: %w", err))
	}

	if err := sess.AddProvider(&wf.Provider{
		ID:          e.providerID,
		Name:        e.name,
		Description: desc.Description,
	}); err != nil {
		sess.Close()
		return e.fail(fmt.Errorf("add WFP provider: %w", err))
	}

	if err := sess.AddSublayer(&wf.Sublayer{
		ID:       e.sublayerID,
		Name:     e.name + " rules",
		Provider: e.providerID,
		Weight:   weight,
	}); err != nil {
		sess.Close()
		return e.fail(fmt.Errorf("add WFP sublayer: %w", err))
	}

	e.session = sess
	return nil
}

func (e *wfpEngine) Stop() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.session == nil {
		return nil
	}
	err := e.session.Close()
	e.session = nil
	e.rules = make(map[uint64]wf.RuleID)
	if err != nil {
		return e.fail(fmt.Errorf("close WFP session: %w", err))
	}
	return nil
}

func (e *wfpEngine) AddRule(rule Rule) (uint64, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.session == nil {
		return 0, e.fail(fmt.Errorf("engine not started"))
	}

	layer, ok := wfpLayers[rule.Layer]
	if !ok {
		return 0, e.fail(fmt.Errorf("layer '%s' is not supported", rule.Layer))
	}
	conditions, err := wfpConditions(rule)
	if err != nil {
		return 0, e.fail(fmt.Errorf("rule '%s': %w", rule.Name, err))
	}
	guid, err := newRuleGUID()
	if err != nil {
		return 0, e.fail(err)
	}

	action := wf.ActionBlock
	if rule.Action == ActionPermit {
		action = wf.ActionPermit
	}

	ruleID := wf.RuleID(guid)
	if err := e.session.AddRule(&wf.Rule{
		ID:         ruleID,
		Name:       rule.Name,
		Layer:      layer,
		Sublayer:   e.sublayerID,
		Weight:     rule.Weight,
		Conditions: conditions,
		Action:     action,
	}); err != nil {
		return 0, e.fail(fmt.Errorf("add WFP rule '%s': %w", rule.Name, err))
	}

	e.lastID++
	e.rules[e.lastID] = ruleID
	return e.lastID, nil
}

func (e *wfpEngine) RemoveRule(id uint64) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	ruleID, ok := e.rules[id]
	if !ok || e.session == nil {
		return e.fail(fmt.Errorf("WFP rule %d not found", id))
	}
	if err := e.session.DeleteRule(ruleID); err != nil {
		return e.fail(fmt.Errorf("delete WFP rule %d: %w", id, err))
	}
	delete(e.rules, id)
	return nil
}

// Cleanup has nothing to do: objects of a dynamic session are removed by the system when its process exits
func (e *wfpEngine) Cleanup() error {
	return nil
}

func (e *wfpEngine) LastError() string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.lastError
}

func wfpMatchType(m Match) wf.MatchType {
	if m == MatchNotEqual {
		return wf.MatchTypeNotEqual
	}
	return wf.MatchTypeEqual
}

func wfpConditions(rule Rule) ([]*wf.Match, error) {
	isV6 := IsIPv6Layer(rule.Layer)
	ret := make([]*wf.Match, 0, len(rule.Conditions))

	for _, c := range rule.Conditions {
		switch c.Field {
		case FieldLoopback:
			op := wf.MatchTypeFlagsAllSet
			if c.Match == MatchNotEqual {
				op = wf.MatchTypeFlagsNoneSet
			}
			ret = append(ret, &wf.Match{Field: wf.FieldFlags, Op: op, Value: wf.ConditionFlagIsLoopback})

		case FieldLocalInterface:
			iface, err := net.InterfaceByName(c.Value)
			if err != nil {
				return nil, fmt.Errorf("interface '%s': %w", c.Value, err)
			}
			luid, err := winipcfg.LUIDFromIndex(uint32(iface.Index))
			if err != nil {
				return nil, fmt.Errorf("interface '%s' LUID: %w", c.Value, err)
			}
			ret = append(ret, &wf.Match{Field: wf.FieldIPLocalInterface, Op: wfpMatchType(c.Match), Value: uint64(luid)})

		case FieldProtocol:
			proto, err := protocolNumber(c.Value, isV6)
			if err != nil {
				return nil, err
			}
			ret = append(ret, &wf.Match{Field: wf.FieldIPProtocol, Op: wfpMatchType(c.Match), Value: wf.IPProto(proto)})

		case FieldRemotePort:
			port, err := strconv.ParseUint(c.Value, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("bad port '%s'", c.Value)
			}
			ret = append(ret, &wf.Match{Field: wf.FieldIPRemotePort, Op: wfpMatchType(c.Match), Value: uint16(port)})

		case FieldRemoteAddress:
			prefix, err := parsePrefix(c.Value)
			if err != nil {
				return nil, err
			}
			if prefix.Addr().Is6() != isV6 {
				return nil, fmt.Errorf("address '%s' does not match layer '%s'", c.Value, rule.Layer)
			}
			var value interface{} = prefix
			if !strings.Contains(c.Value, "/") {
				value = prefix.Addr()
			}
			ret = append(ret, &wf.Match{Field: wf.FieldIPRemoteAddress, Op: wfpMatchType(c.Match), Value: value})

		default:
			return nil, fmt.Errorf("unsupported condition field '%s'", c.Field)
		}
	}
	return ret, nil
}
