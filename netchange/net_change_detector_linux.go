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

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"
)

func doWatch(stop <-chan struct{}, changed chan<- struct{}) error {
	known := mapset.NewThreadUnsafeSet[string]()
	if links, err := netlink.LinkList(); err == nil {
		for _, l := range links {
			known.Add(l.Attrs().Name)
		}
	}

	updates := make(chan netlink.LinkUpdate, 16)
	done := make(chan struct{})
	defer close(done)

	if err := netlink.LinkSubscribe(updates, done); err != nil {
		return fmt.Errorf("error netlink.LinkSubscribe(): %w", err)
	}

	for {
		select {
		case <-stop:
			return nil
		case u, ok := <-updates:
			if !ok {
				return fmt.Errorf("netlink subscription closed")
			}
			if u.Link == nil {
				continue
			}
			name := u.Link.Attrs().Name
			switch u.Header.Type {
			case unix.RTM_NEWLINK:
				if known.Add(name) {
					log.Debug(fmt.Sprintf("new link '%s'", name))
					notify(changed)
				}
			case unix.RTM_DELLINK:
				known.Remove(name)
			}
		}
	}
}
