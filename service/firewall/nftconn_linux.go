// Copyright (c) 2025 privateLINE, LLC.

package firewall

import (
	"github.com/google/nftables"
)

// NFTablesConn abstracts nftables.Conn operations used by the engine (allows mocking in tests)
type NFTablesConn interface {
	AddTable(t *nftables.Table) *nftables.Table
	DelTable(t *nftables.Table)
	ListTables() ([]*nftables.Table, error)

	AddChain(c *nftables.Chain) *nftables.Chain

	AddRule(r *nftables.Rule) *nftables.Rule
	InsertRule(r *nftables.Rule) *nftables.Rule
	DelRule(r *nftables.Rule) error
	GetRules(t *nftables.Table, c *nftables.Chain) ([]*nftables.Rule, error)

	// Flush commits the queued changes
	Flush() error
}

// RealNFTablesConn wraps the actual nftables.Conn
type RealNFTablesConn struct {
	conn *nftables.Conn
}

func NewRealNFTablesConn(conn *nftables.Conn) *RealNFTablesConn {
	return &RealNFTablesConn{conn: conn}
}

func (r *RealNFTablesConn) AddTable(t *nftables.Table) *nftables.Table {
	return r.conn.AddTable(t)
}

func (r *RealNFTablesConn) DelTable(t *nftables.Table) {
	r.conn.DelTable(t)
}

func (r *RealNFTablesConn) ListTables() ([]*nftables.Table, error) {
	return r.conn.ListTables()
}

func (r *RealNFTablesConn) AddChain(c *nftables.Chain) *nftables.Chain {
	return r.conn.AddChain(c)
}

func (r *RealNFTablesConn) AddRule(rule *nftables.Rule) *nftables.Rule {
	return r.conn.AddRule(rule)
}

func (r *RealNFTablesConn) InsertRule(rule *nftables.Rule) *nftables.Rule {
	return r.conn.InsertRule(rule)
}

func (r *RealNFTablesConn) DelRule(rule *nftables.Rule) error {
	return r.conn.DelRule(rule)
}

func (r *RealNFTablesConn) GetRules(t *nftables.Table, c *nftables.Chain) ([]*nftables.Rule, error) {
	return r.conn.GetRules(t, c)
}

func (r *RealNFTablesConn) Flush() error {
	return r.conn.Flush()
}
