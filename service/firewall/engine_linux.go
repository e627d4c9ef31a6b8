// Copyright (c) 2025 privateLINE, LLC.

package firewall

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"sync"

	"github.com/google/nftables"
	"github.com/google/nftables/binaryutil"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"
)

const (
	nftTableName     = "netlock"
	nftRuleTagPrefix = "netlock:"
)

// nftEngine - netfilter backend.
// All rules live in the 'inet netlock' table; deleting the table removes everything at once.
// Permit rules are inserted at the head of a chain, block rules are appended,
// so any permit rule takes precedence over any block rule.
type nftEngine struct {
	mutex   sync.Mutex
	newConn func() (NFTablesConn, error)

	conn   NFTablesConn
	table  *nftables.Table
	input  *nftables.Chain
	output *nftables.Chain

	lastID    uint64
	lastError string
}

func newEngine() Engine {
	return newNftEngine(func() (NFTablesConn, error) {
		conn, err := nftables.New()
		if err != nil {
			return nil, err
		}
		return NewRealNFTablesConn(conn), nil
	})
}

func newNftEngine(newConn func() (NFTablesConn, error)) *nftEngine {
	return &nftEngine{newConn: newConn}
}

func (e *nftEngine) fail(err error) error {
	e.lastError = err.Error()
	return err
}

func (e *nftEngine) Init(serviceName string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.conn != nil {
		return nil
	}
	conn, err := e.newConn()
	if err != nil {
		return e.fail(fmt.Errorf("failed to open netlink connection: %w", err))
	}
	e.conn = conn
	log.Debug("nftables engine initialized for ", serviceName)
	return nil
}

func (e *nftEngine) Start(desc ServiceDescriptor) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.conn == nil {
		return e.fail(fmt.Errorf("engine not initialized"))
	}

	if _, err := e.delStaleTable(); err != nil {
		return e.fail(err)
	}

	policy := nftables.ChainPolicyAccept
	e.table = e.conn.AddTable(&nftables.Table{Family: nftables.TableFamilyINet, Name: nftTableName})
	e.input = e.conn.AddChain(&nftables.Chain{Name: "input", Table: e.table, Type: nftables.ChainTypeFilter,
		Hooknum: nftables.ChainHookInput, Priority: nftables.ChainPriorityFilter, Policy: &policy})
	e.output = e.conn.AddChain(&nftables.Chain{Name: "output", Table: e.table, Type: nftables.ChainTypeFilter,
		Hooknum: nftables.ChainHookOutput, Priority: nftables.ChainPriorityFilter, Policy: &policy})

	if err := e.conn.Flush(); err != nil {
		e.table = nil
		return e.fail(fmt.Errorf("failed to create nft table '%s': %w", nftTableName, err))
	}
	log.Info(fmt.Sprintf("nft table '%s' created (%s)", nftTableName, desc.Description))
	return nil
}

// delStaleTable queues deletion of a table left by a previous process; the caller flushes
func (e *nftEngine) delStaleTable() (bool, error) {
	tables, err := e.conn.ListTables()
	if err != nil {
		return false, fmt.Errorf("failed to list nft tables: %w", err)
	}
	found := false
	for _, t := range tables {
		if t.Name == nftTableName && t.Family == nftables.TableFamilyINet {
			log.Info("removing stale nft table ", nftTableName)
			e.conn.DelTable(t)
			found = true
		}
	}
	return found, nil
}

func (e *nftEngine) Cleanup() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.conn == nil {
		return e.fail(fmt.Errorf("engine not initialized"))
	}
	if e.table != nil {
		return e.fail(fmt.Errorf("engine is running"))
	}

	found, err := e.delStaleTable()
	if err != nil {
		return e.fail(err)
	}
	if !found {
		return nil
	}
	if err := e.conn.Flush(); err != nil {
		return e.fail(fmt.Errorf("failed to delete stale nft table '%s': %w", nftTableName, err))
	}
	return nil
}

func (e *nftEngine) Stop() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.table == nil {
		return nil
	}
	e.conn.DelTable(e.table)
	e.table, e.input, e.output = nil, nil, nil
	if err := e.conn.Flush(); err != nil {
		return e.fail(fmt.Errorf("failed to delete nft table '%s': %w", nftTableName, err))
	}
	return nil
}

func (e *nftEngine) AddRule(rule Rule) (uint64, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.table == nil {
		return 0, e.fail(fmt.Errorf("engine not started"))
	}

	chain, isInput, err := e.chainForLayer(rule.Layer)
	if err != nil {
		return 0, e.fail(err)
	}
	exprs, err := nftRuleExprs(rule, isInput)
	if err != nil {
		return 0, e.fail(fmt.Errorf("rule '%s': %w", rule.Name, err))
	}

	id := e.lastID + 1
	r := &nftables.Rule{Table: e.table, Chain: chain, Exprs: exprs, UserData: []byte(nftRuleTag(id))}
	if rule.Action == ActionPermit {
		e.conn.InsertRule(r)
	} else {
		e.conn.AddRule(r)
	}
	if err := e.conn.Flush(); err != nil {
		return 0, e.fail(fmt.Errorf("failed to add nft rule '%s': %w", rule.Name, err))
	}
	e.lastID = id
	return id, nil
}

func (e *nftEngine) RemoveRule(id uint64) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.table == nil {
		return e.fail(fmt.Errorf("engine not started"))
	}

	tag := nftRuleTag(id)
	for _, chain := range []*nftables.Chain{e.input, e.output} {
		rules, err := e.conn.GetRules(e.table, chain)
		if err != nil {
			return e.fail(fmt.Errorf("failed to list nft rules: %w", err))
		}
		for _, r := range rules {
			if string(r.UserData) != tag {
				continue
			}
			if err := e.conn.DelRule(r); err != nil {
				return e.fail(fmt.Errorf("failed to delete nft rule %d: %w", id, err))
			}
			if err := e.conn.Flush(); err != nil {
				return e.fail(fmt.Errorf("failed to delete nft rule %d: %w", id, err))
			}
			return nil
		}
	}
	return e.fail(fmt.Errorf("nft rule %d not found", id))
}

func (e *nftEngine) LastError() string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.lastError
}

func (e *nftEngine) chainForLayer(layer string) (chain *nftables.Chain, isInput bool, err error) {
	switch layer {
	case LayerRecvAcceptV4, LayerRecvAcceptV6:
		return e.input, true, nil
	case LayerConnectV4, LayerConnectV6, LayerFlowEstablishedV4, LayerFlowEstablishedV6:
		return e.output, false, nil
	}
	return nil, false, fmt.Errorf("layer '%s' is not supported", layer)
}

func nftRuleTag(id uint64) string {
	return nftRuleTagPrefix + strconv.FormatUint(id, 10)
}

func nftCmpOp(m Match) expr.CmpOp {
	if m == MatchNotEqual {
		return expr.CmpOpNeq
	}
	return expr.CmpOpEq
}

func nftIfname(name string) []byte {
	b := make([]byte, 16)
	copy(b, name)
	return b
}

// nftRuleExprs converts rule into nft expressions.
// isInput selects the direction: the remote address is the source on input and the destination on output.
func nftRuleExprs(rule Rule, isInput bool) ([]expr.Any, error) {
	isV6 := IsIPv6Layer(rule.Layer)

	nfproto := byte(unix.NFPROTO_IPV4)
	if isV6 {
		nfproto = unix.NFPROTO_IPV6
	}
	exprs := []expr.Any{
		&expr.Meta{Key: expr.MetaKeyNFPROTO, Register: 1},
		&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: []byte{nfproto}},
	}

	if strings.HasPrefix(rule.Layer, "ale_flow_established") {
		exprs = append(exprs,
			&expr.Ct{Register: 1, Key: expr.CtKeySTATE},
			&expr.Bitwise{
				SourceRegister: 1,
				DestRegister:   1,
				Len:            4,
				Mask:           binaryutil.NativeEndian.PutUint32(expr.CtStateBitESTABLISHED | expr.CtStateBitRELATED),
				Xor:            binaryutil.NativeEndian.PutUint32(0),
			},
			&expr.Cmp{Op: expr.CmpOpNeq, Register: 1, Data: binaryutil.NativeEndian.PutUint32(0)},
		)
	}

	ifaceKey := expr.MetaKeyOIFNAME
	if isInput {
		ifaceKey = expr.MetaKeyIIFNAME
	}

	for _, c := range rule.Conditions {
		op := nftCmpOp(c.Match)
		switch c.Field {
		case FieldLoopback:
			exprs = append(exprs,
				&expr.Meta{Key: ifaceKey, Register: 1},
				&expr.Cmp{Op: op, Register: 1, Data: nftIfname("lo")})

		case FieldLocalInterface:
			exprs = append(exprs,
				&expr.Meta{Key: ifaceKey, Register: 1},
				&expr.Cmp{Op: op, Register: 1, Data: nftIfname(c.Value)})

		case FieldProtocol:
			proto, err := protocolNumber(c.Value, isV6)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs,
				&expr.Meta{Key: expr.MetaKeyL4PROTO, Register: 1},
				&expr.Cmp{Op: op, Register: 1, Data: []byte{proto}})

		case FieldRemotePort:
			port, err := strconv.ParseUint(c.Value, 10, 16)
			if err != nil {
				return nil, fmt.Errorf("bad port '%s'", c.Value)
			}
			offset := uint32(2) // destination port
			if isInput {
				offset = 0
			}
			exprs = append(exprs,
				&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseTransportHeader, Offset: offset, Len: 2},
				&expr.Cmp{Op: op, Register: 1, Data: binaryutil.BigEndian.PutUint16(uint16(port))})

		case FieldRemoteAddress:
			prefix, err := parsePrefix(c.Value)
			if err != nil {
				return nil, err
			}
			if prefix.Addr().Is6() != isV6 {
				return nil, fmt.Errorf("address '%s' does not match layer '%s'", c.Value, rule.Layer)
			}
			exprs = append(exprs, nftAddressExprs(prefix, isInput, op)...)

		default:
			return nil, fmt.Errorf("unsupported condition field '%s'", c.Field)
		}
	}

	verdict := expr.VerdictDrop
	if rule.Action == ActionPermit {
		verdict = expr.VerdictAccept
	}
	return append(exprs, &expr.Counter{}, &expr.Verdict{Kind: verdict}), nil
}

func nftAddressExprs(prefix netip.Prefix, isInput bool, op expr.CmpOp) []expr.Any {
	addrLen, srcOffset, dstOffset := uint32(4), uint32(12), uint32(16)
	if prefix.Addr().Is6() {
		addrLen, srcOffset, dstOffset = 16, 8, 24
	}
	offset := dstOffset
	if isInput {
		offset = srcOffset
	}

	exprs := []expr.Any{&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseNetworkHeader, Offset: offset, Len: addrLen}}
	if prefix.Bits() < prefix.Addr().BitLen() {
		exprs = append(exprs, &expr.Bitwise{
			SourceRegister: 1,
			DestRegister:   1,
			Len:            addrLen,
			Mask:           prefixMask(prefix),
			Xor:            make([]byte, addrLen),
		})
	}
	return append(exprs, &expr.Cmp{Op: op, Register: 1, Data: prefix.Masked().Addr().AsSlice()})
}
