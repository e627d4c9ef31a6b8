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

// WeightMax - service descriptor weight making our filters evaluated before others
const WeightMax = "max"

// ServiceDescriptor - identity of the filtering service registered in the engine
type ServiceDescriptor struct {
	Description string
	Weight      string
}

// Engine - native packet-filter engine.
// There is one implementation per OS (see NewEngine()).
type Engine interface {
	Init(serviceName string) error
	Start(desc ServiceDescriptor) error
	Stop() error
	// AddRule returns a non-zero rule identifier
	AddRule(rule Rule) (uint64, error)
	RemoveRule(id uint64) error
	// Cleanup removes filtering state left by a previous process that exited without Stop().
	// Called after Init() while the engine is not started.
	Cleanup() error
	// LastError returns the diagnostic text of the last failed operation
	LastError() string
}

// NewEngine returns Engine implementation for the current OS
func NewEngine() Engine {
	return newEngine()
}
