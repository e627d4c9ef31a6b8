// TODO FIXME: prepend license
// Copyright (c) 2025 privateLINE, LLC.

package srvhelpers

import (
	"sync"

	"github.com/swapnilsparsh/devsVPN/netlock/logger"
)

var log *logger.Logger

func init() {
	log = logger.NewLogger("srvhlp")
}

// ServiceBackgroundMonitorFunc must return when something is received from endChan
type ServiceBackgroundMonitorFunc func(endChan <-chan bool)
type ServiceBackgroundMonitor struct {
	MonitorName          string
	MonitorFunc          ServiceBackgroundMonitorFunc
	MonitorEndChan       chan bool
	MonitorRunningMutex  *sync.Mutex
	MonitorStopFuncMutex *sync.Mutex
}

func NewServiceBackgroundMonitor(name string, f ServiceBackgroundMonitorFunc) *ServiceBackgroundMonitor {
	return &ServiceBackgroundMonitor{
		MonitorName:          name,
		MonitorFunc:          f,
		MonitorEndChan:       make(chan bool, 1),
		MonitorRunningMutex:  &sync.Mutex{},
		MonitorStopFuncMutex: &sync.Mutex{},
	}
}

// StartServiceBackgroundMonitor runs MonitorFunc in a goroutine.
// Returns false if the monitor is already running.
func (sbm *ServiceBackgroundMonitor) StartServiceBackgroundMonitor() bool {
	if !sbm.MonitorRunningMutex.TryLock() {
		log.Debug("StartServiceBackgroundMonitor: monitor '", sbm.MonitorName, "' already running")
		return false
	}
	log.Debug("StartServiceBackgroundMonitor: starting monitor '", sbm.MonitorName, "'")
	go func() {
		defer sbm.MonitorRunningMutex.Unlock()
		sbm.MonitorFunc(sbm.MonitorEndChan)
	}()
	return true
}

// IsRunning returns true while MonitorFunc has not exited
func (sbm *ServiceBackgroundMonitor) IsRunning() bool {
	if !sbm.MonitorRunningMutex.TryLock() {
		return true
	}
	sbm.MonitorRunningMutex.Unlock()
	return false
}

// StopServiceBackgroundMonitor stops the corresponding background monitor.
// It will stop it only once, if needed - or won't send stop action if the monitor was already stopped.
func (sbm *ServiceBackgroundMonitor) StopServiceBackgroundMonitor() {
	sbm.MonitorStopFuncMutex.Lock() // single-instance function
	defer sbm.MonitorStopFuncMutex.Unlock()
	log.Debug("StopServiceBackgroundMonitor: stopping monitor '", sbm.MonitorName, "'")

	// must check whether the monitor func is still running (it could've exited due to an error)
	if !sbm.MonitorRunningMutex.TryLock() {
		sbm.MonitorEndChan <- true     // send MonitorFunc a stop signal (buffered: the func may exit meanwhile)
		sbm.MonitorRunningMutex.Lock() // wait for it to stop
		defer log.Debug("StopServiceBackgroundMonitor: monitor '", sbm.MonitorName, "' stopped")
	} else {
		defer log.Debug("StopServiceBackgroundMonitor: monitor '", sbm.MonitorName, "' was already stopped")
	}
	// drop a stop signal not consumed by an already exited func
	select {
	case <-sbm.MonitorEndChan:
	default:
	}
	sbm.MonitorRunningMutex.Unlock() // release its mutex, to allow it to be restarted later
}
