// Copyright (c) 2025 privateLINE, LLC.

package dns

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/swapnilsparsh/devsVPN/netlock/service/srvhelpers"
)

// GuardDebounce - delay between a resolver file change and the reaction
const GuardDebounce = 2 * time.Second

// Guard watches resolver configuration files and calls onChange
// when they are modified by someone else while the lock is active
type Guard struct {
	files    []string
	debounce time.Duration
	onChange func()
	monitor  *srvhelpers.ServiceBackgroundMonitor
}

func NewGuard(files []string, debounce time.Duration, onChange func()) *Guard {
	g := &Guard{files: files, debounce: debounce, onChange: onChange}
	g.monitor = srvhelpers.NewServiceBackgroundMonitor("DNS guard", g.run)
	return g
}

// Start returns false if the guard is already running
func (g *Guard) Start() bool {
	return g.monitor.StartServiceBackgroundMonitor()
}

func (g *Guard) Stop() {
	g.monitor.StopServiceBackgroundMonitor()
}

func (g *Guard) IsRunning() bool {
	return g.monitor.IsRunning()
}

func (g *Guard) run(endChan <-chan bool) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Error(fmt.Errorf("failed to start DNS-change monitoring (fsnotify error): %w", err))
		return
	}

	log.Info("DNS-change monitoring start")
	defer func() {
		log.Info("DNS-change monitoring stopped")
		w.Close()
	}()

	for {
		// files are often replaced rather than modified, so the watches are re-added after every change
		for _, fpath := range g.files {
			w.Remove(fpath)
		}
		isMonitoringStarted := false
		for _, fpath := range g.files {
			if _, err := os.Stat(fpath); err != nil {
				log.Debug(fmt.Sprintf("unable to start file-change monitoring for file '%s': %s", fpath, err.Error()))
				continue
			}
			if err := w.Add(fpath); err != nil {
				log.Error(fmt.Errorf("failed to start file-change monitoring for file '%s'(fsnotify error): %w", fpath, err))
				continue
			}
			isMonitoringStarted = true
		}
		if !isMonitoringStarted {
			log.Warning("DNS-change monitoring NOT started (nothing to monitor)")
			<-endChan
			return
		}

		var evt fsnotify.Event
		select {
		case evt = <-w.Events:
		case err := <-w.Errors:
			log.Warning("DNS-change monitoring: ", err)
			continue
		case <-endChan:
			return
		}

		// multiple changes in a short period of time cause a single reaction
		select {
		case <-time.After(g.debounce):
		case <-endChan:
			return
		}
	drain:
		for {
			select {
			case <-w.Events:
			default:
				break drain
			}
		}

		log.Info(fmt.Sprintf("DNS-change monitoring: resolver configuration changed [%s]", evt.String()))
		g.onChange()
	}
}
