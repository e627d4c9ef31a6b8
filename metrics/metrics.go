// Copyright (c) 2025 privateLINE, LLC.

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once     sync.Once
	registry *Registry
)

// Registry holds network lock metrics
type Registry struct {
	reg *prometheus.Registry

	// Firewall
	RuleGroups    prometheus.Gauge
	EngineRunning prometheus.Gauge
	EngineStarts  prometheus.Counter
	EngineStops   prometheus.Counter
	RulesAdded    prometheus.Counter

	// Outstanding entries
	DnsEntries  prometheus.Gauge
	IPv6Entries prometheus.Gauge

	RestoreFailures *prometheus.CounterVec
}

// Get returns the global metrics registry, creating it if necessary.
func Get() *Registry {
	once.Do(func() {
		registry = NewRegistry()
	})
	return registry
}

// NewRegistry creates a registry not shared with the rest of the process
func NewRegistry() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}
	f := promauto.With(r.reg)

	r.RuleGroups = f.NewGauge(prometheus.GaugeOpts{
		Name: "netlock_rule_groups",
		Help: "Number of outstanding firewall rule groups",
	})
	r.EngineRunning = f.NewGauge(prometheus.GaugeOpts{
		Name: "netlock_engine_running",
		Help: "1 when the packet-filter engine is started",
	})
	r.EngineStarts = f.NewCounter(prometheus.CounterOpts{
		Name: "netlock_engine_starts_total",
		Help: "Packet-filter engine starts",
	})
	r.EngineStops = f.NewCounter(prometheus.CounterOpts{
		Name: "netlock_engine_stops_total",
		Help: "Packet-filter engine stops",
	})
	r.RulesAdded = f.NewCounter(prometheus.CounterOpts{
		Name: "netlock_rules_added_total",
		Help: "Rules submitted to the packet-filter engine",
	})
	r.DnsEntries = f.NewGauge(prometheus.GaugeOpts{
		Name: "netlock_dns_entries",
		Help: "Interfaces with overridden DNS servers pending restore",
	})
	r.IPv6Entries = f.NewGauge(prometheus.GaugeOpts{
		Name: "netlock_ipv6_entries",
		Help: "Interfaces with overridden IPv6 mode pending restore",
	})
	r.RestoreFailures = f.NewCounterVec(prometheus.CounterOpts{
		Name: "netlock_restore_failures_total",
		Help: "Failed per-interface restore operations",
	}, []string{"kind"})

	return r
}

// Gatherer gives access to collected metrics
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler returns HTTP handler exposing the registry
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
