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

package netchange

import (
	"fmt"
	"time"

	"github.com/swapnilsparsh/devsVPN/netlock/logger"
	"github.com/swapnilsparsh/devsVPN/netlock/service/srvhelpers"
)

var log *logger.Logger

func init() {
	log = logger.NewLogger("netchn")
}

// DefaultDelay - delay between the first detected interface change and the notification
const DefaultDelay = 3 * time.Second

// watchFunc blocks until 'stop' is closed; it signals 'changed' when a network interface appears.
// Replaced in tests.
var watchFunc = doWatch

// Detector notifies about new network interfaces (e.g. an USB modem plugged in while the network is locked)
type Detector struct {
	delay    time.Duration
	onChange func()
	monitor  *srvhelpers.ServiceBackgroundMonitor
}

func NewDetector(delay time.Duration, onChange func()) *Detector {
	if delay <= 0 {
		delay = DefaultDelay
	}
	d := &Detector{delay: delay, onChange: onChange}
	d.monitor = srvhelpers.NewServiceBackgroundMonitor("interface change detector", d.run)
	return d
}

// Start returns false if the detector is already running
func (d *Detector) Start() bool {
	return d.monitor.StartServiceBackgroundMonitor()
}

func (d *Detector) Stop() {
	d.monitor.StopServiceBackgroundMonitor()
}

func (d *Detector) IsRunning() bool {
	return d.monitor.IsRunning()
}

func notify(changed chan<- struct{}) {
	select {
	case changed <- struct{}{}:
	default:
	}
}

func (d *Detector) run(endChan <-chan bool) {
	changed := make(chan struct{}, 1)
	stop := make(chan struct{})
	watchDone := make(chan struct{})

	log.Info("Interface change detector started")
	go func() {
		defer close(watchDone)
		if err := watchFunc(stop, changed); err != nil {
			log.Error(fmt.Errorf("interface change detector: %w", err))
		}
	}()
	defer func() {
		close(stop)
		<-watchDone
		log.Info("Interface change detector stopped")
	}()

	for {
		select {
		case <-changed:
		case <-watchDone:
			<-endChan
			return
		case <-endChan:
			return
		}

		// a burst of changes causes a single notification
		select {
		case <-time.After(d.delay):
		case <-endChan:
			return
		}
		select {
		case <-changed:
		default:
		}

		log.Info("Network interfaces changed")
		d.onChange()
	}
}
