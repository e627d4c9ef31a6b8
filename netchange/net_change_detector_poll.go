// Copyright (c) 2025 privateLINE, LLC.

//go:build !linux

package netchange

import (
	"net"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// PollInterval - how often the interface list is checked
var PollInterval = 5 * time.Second

func interfaceNames() mapset.Set[string] {
	names := mapset.NewThreadUnsafeSet[string]()
	ifaces, err := net.Interfaces()
	if err != nil {
		log.Debug("failed to list interfaces: ", err)
		return names
	}
	for _, iface := range ifaces {
		names.Add(iface.Name)
	}
	return names
}

func doWatch(stop <-chan struct{}, changed chan<- struct{}) error {
	known := interfaceNames()
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return nil
		case <-ticker.C:
			current := interfaceNames()
			if !current.IsSubset(known) {
				notify(changed)
			}
			known = current
		}
	}
}
