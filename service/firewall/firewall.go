//
//  Daemon for privateLINE Connect Desktop
//  https://github.com/swapnilsparsh/devsVPN
//
//  Created by Stelnykovych Alexandr.
//  Copyright (c) 2023 IVPN Limited.
//
//  This file is part of the Daemon for privateLINE Connect Desktop.
//
//  The Daemon for privateLINE Connect Desktop is free software: you can redistribute it and/or
//  modify it under the terms of the GNU General Public License as published by the Free
//  Software Foundation, either version 3 of the License, or (at your option) any later version.
//
//  The Daemon for privateLINE Connect Desktop is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of MERCHANTABILITY
//  or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for more
//  details.
//
//  You should have received a copy of the GNU General Public License
//  along with the Daemon for privateLINE Connect Desktop. If not, see <https://www.gnu.org/licenses/>.
//

package firewall

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/swapnilsparsh/devsVPN/netlock/logger"
	"github.com/swapnilsparsh/devsVPN/netlock/metrics"
	"github.com/swapnilsparsh/devsVPN/netlock/service/firewall/types"
)

var log *logger.Logger

func init() {
	log = logger.NewLogger("frwl")
}

// Controller owns the packet-filter engine and the rule groups added to it.
// The engine is started when the first group is added and stopped when the last one is removed.
type Controller struct {
	mutex       sync.Mutex
	engine      Engine
	serviceName string
	groups      map[string][]uint64
	order       []string // codes in order of addition
	isRunning   bool
	metrics     *metrics.Registry
}

func NewController(engine Engine, serviceName string) *Controller {
	return &Controller{
		engine:      engine,
		serviceName: serviceName,
		groups:      make(map[string][]uint64),
		metrics:     metrics.Get(),
	}
}

// AddRuleGroup adds one rule per layer of layerToken and keeps their ids under code.
// On RuleAddError the rules added by this call before the failure stay in the engine.
func (c *Controller) AddRuleGroup(code, layerToken string, rule Rule) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.groups[code]; exists {
		return log.ErrorFE("rule group '%s' already exists", code)
	}

	if !c.isRunning {
		if err := c.start(); err != nil {
			return err
		}
	}

	layers := ExpandLayers(layerToken)
	ids := make([]uint64, 0, len(layers))
	for _, layer := range layers {
		r := rule.WithLayer(layer)
		id, err := c.engine.AddRule(r)
		if err == nil && id == 0 {
			err = errors.New("engine returned zero rule id")
		}
		if err != nil {
			if len(ids) > 0 {
				log.Warning(fmt.Sprintf("rule group '%s': %d rule(s) added before the failure remain active %v", code, len(ids), ids))
			}
			return log.ErrorE(types.NewRuleAddError(err, c.engine.LastError(), code, layer, len(ids)), 0)
		}
		ids = append(ids, id)
		c.metrics.RulesAdded.Inc()
	}

	c.groups[code] = ids
	c.order = append(c.order, code)
	c.metrics.RuleGroups.Set(float64(len(c.groups)))
	log.Debug(fmt.Sprintf("rule group '%s' added (%d rules)", code, len(ids)))
	return nil
}

// RemoveRuleGroup removes all rules of the group. Returns false if the group is unknown.
// Removal continues after a failed rule; all failures are returned joined.
func (c *Controller) RemoveRuleGroup(code string) (bool, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ids, exists := c.groups[code]
	if !exists {
		return false, nil
	}

	var errs []error
	for _, id := range ids {
		if err := c.engine.RemoveRule(id); err != nil {
			rerr := types.NewRuleRemoveError(err, c.engine.LastError(), code, id)
			log.Error(rerr)
			errs = append(errs, rerr)
		}
	}
	delete(c.groups, code)
	for i, x := range c.order {
		if x == code {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	c.metrics.RuleGroups.Set(float64(len(c.groups)))
	log.Debug(fmt.Sprintf("rule group '%s' removed", code))

	if len(c.groups) == 0 {
		if err := c.stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return true, errors.Join(errs...)
}

// RemoveAll removes every group, the most recently added first
func (c *Controller) RemoveAll() error {
	c.mutex.Lock()
	codes := append([]string{}, c.order...)
	c.mutex.Unlock()

	var errs []error
	for i := len(codes) - 1; i >= 0; i-- {
		if _, err := c.RemoveRuleGroup(codes[i]); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cleanup removes filtering state left in the engine by a previous process.
// Refused while the engine is running.
func (c *Controller) Cleanup() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.isRunning {
		return log.ErrorFE("packet-filter cleanup refused: engine is running")
	}
	if err := c.engine.Init(c.serviceName); err != nil {
		return log.ErrorE(types.NewEngineStartError(err, c.engine.LastError()), 0)
	}
	if err := c.engine.Cleanup(); err != nil {
		return log.ErrorFE("failed to remove stale packet-filter rules: %w (%s)", err, c.engine.LastError())
	}
	return nil
}

// StopIfIdle stops the engine if it is running without any group
// (possible after RuleAddError on the first group)
func (c *Controller) StopIfIdle() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.isRunning || len(c.groups) > 0 {
		return nil
	}
	return c.stop()
}

func (c *Controller) Count() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.groups)
}

func (c *Controller) IsRunning() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.isRunning
}

// Codes returns sorted codes of outstanding groups
func (c *Controller) Codes() []string {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ret := make([]string, 0, len(c.groups))
	for code := range c.groups {
		ret = append(ret, code)
	}
	sort.Strings(ret)
	return ret
}

func (c *Controller) start() error {
	log.Info("Starting packet-filter engine...")
	if err := c.engine.Init(c.serviceName); err != nil {
		return log.ErrorE(types.NewEngineStartError(err, c.engine.LastError()), 0)
	}
	if err := c.engine.Start(ServiceDescriptor{Description: c.serviceName, Weight: WeightMax}); err != nil {
		return log.ErrorE(types.NewEngineStartError(err, c.engine.LastError()), 0)
	}
	c.isRunning = true
	c.metrics.EngineStarts.Inc()
	c.metrics.EngineRunning.Set(1)
	return nil
}

// stop marks the engine stopped even on failure; the next start re-initializes it
func (c *Controller) stop() error {
	log.Info("Stopping packet-filter engine...")
	c.isRunning = false
	c.metrics.EngineStops.Inc()
	c.metrics.EngineRunning.Set(0)
	if err := c.engine.Stop(); err != nil {
		return log.ErrorFE("failed to stop packet-filter engine: %w (%s)", err, c.engine.LastError())
	}
	return nil
}
