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

package helpers

import (
	"net/netip"
	"strings"
)

// IsIPLiteral returns true if the string is a syntactically valid IPv4 or IPv6 address (no port, no mask)
func IsIPLiteral(s string) bool {
	_, err := netip.ParseAddr(strings.TrimSpace(s))
	return err == nil
}

// FilterIPLiterals keeps only valid IP literals (trimmed), preserving order
func FilterIPLiterals(values []string) []string {
	ret := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if IsIPLiteral(v) {
			ret = append(ret, v)
		}
	}
	return ret
}

// CanonicalIPList converts a comma separated list of IP addresses into its canonical form:
// invalid items dropped, items trimmed, joined by ','. Empty string means "automatic".
func CanonicalIPList(list string) string {
	if len(strings.TrimSpace(list)) == 0 {
		return ""
	}
	return strings.Join(FilterIPLiterals(strings.Split(list, ",")), ",")
}

// SplitIPList is the reverse of CanonicalIPList
func SplitIPList(list string) []string {
	canonical := CanonicalIPList(list)
	if len(canonical) == 0 {
		return nil
	}
	return strings.Split(canonical, ",")
}
