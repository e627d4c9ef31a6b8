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

package rageshake

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/swapnilsparsh/devsVPN/netlock/helpers"
	"github.com/swapnilsparsh/devsVPN/netlock/logger"
	"github.com/swapnilsparsh/devsVPN/netlock/netinfo"
)

var log *logger.Logger

func init() {
	log = logger.NewLogger("rgshk")
}

// MaxLogTail - maximum number of bytes taken from the end of the log file
const MaxLogTail = 64 * 1024

const reportFilePrefix = "netlock-report-"

// Report - snapshot of the network lock state and of the OS network configuration
type Report struct {
	Timestamp string          `json:"timestamp"`
	Reason    string          `json:"reason"`
	System    SystemInfo      `json:"system"`
	Lock      interface{}     `json:"lock,omitempty"`
	Recovery  string          `json:"recovery,omitempty"`
	Network   []InterfaceInfo `json:"network"`
	LogTail   string          `json:"log_tail,omitempty"`
}

type SystemInfo struct {
	Platform     string `json:"platform"`
	Architecture string `json:"architecture"`
	GoVersion    string `json:"go_version"`
	Hostname     string `json:"hostname"`
	PID          int    `json:"pid"`
	CommandLine  string `json:"command_line"`
	NumGoroutine int    `json:"num_goroutine"`
}

// InterfaceInfo - DNS and IPv6 configuration of an interface as reported by the OS
type InterfaceInfo struct {
	Name       string   `json:"name"`
	DnsServers []string `json:"dns_servers"`
	IPv6Mode   string   `json:"ipv6_mode"`
	IPv6Addr   string   `json:"ipv6_address,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// Rageshake collects diagnostic reports
type Rageshake struct {
	ops          netinfo.Operations
	logFile      string
	recoveryFile string
	lockStatus   func() interface{}
}

// New creates a collector. lockStatus may be nil.
func New(ops netinfo.Operations, logFile, recoveryFile string, lockStatus func() interface{}) *Rageshake {
	return &Rageshake{ops: ops, logFile: logFile, recoveryFile: recoveryFile, lockStatus: lockStatus}
}

// Collect never fails: unreadable parts are reported inside the report
func (r *Rageshake) Collect(reason string) *Report {
	hostname, _ := os.Hostname()
	report := &Report{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Reason:    reason,
		System: SystemInfo{
			Platform:     runtime.GOOS,
			Architecture: runtime.GOARCH,
			GoVersion:    runtime.Version(),
			Hostname:     hostname,
			PID:          os.Getpid(),
			CommandLine:  strings.Join(os.Args, " "),
			NumGoroutine: runtime.NumGoroutine(),
		},
		Recovery: readTail(r.recoveryFile, MaxLogTail),
		Network:  r.collectNetwork(),
		LogTail:  readTail(r.logFile, MaxLogTail),
	}
	if r.lockStatus != nil {
		report.Lock = r.lockStatus()
	}
	return report
}

func (r *Rageshake) collectNetwork() []InterfaceInfo {
	if r.ops == nil {
		return nil
	}
	interfaces, err := r.ops.ListInterfaces()
	if err != nil {
		return []InterfaceInfo{{Error: fmt.Sprintf("failed to enumerate interfaces: %v", err)}}
	}

	ret := make([]InterfaceInfo, 0, len(interfaces))
	for _, iface := range interfaces {
		info := InterfaceInfo{Name: iface}
		var errs []string
		if servers, err := r.ops.GetDnsServers(iface); err != nil {
			errs = append(errs, "dns: "+err.Error())
		} else {
			info.DnsServers = servers
		}
		if v6, err := r.ops.GetIPv6Info(iface); err != nil {
			errs = append(errs, "ipv6: "+err.Error())
		} else {
			info.IPv6Mode = string(v6.Mode)
			info.IPv6Addr = v6.Address
		}
		info.Error = strings.Join(errs, "; ")
		ret = append(ret, info)
	}
	return ret
}

// readTail returns up to maxSize last bytes of a file; empty string if the file does not exist
func readTail(filePath string, maxSize int64) string {
	if len(filePath) == 0 {
		return ""
	}
	f, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return ""
		}
		return fmt.Sprintf("[Error reading file: %v]", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return fmt.Sprintf("[Error reading file: %v]", err)
	}
	offset := int64(0)
	if stat.Size() > maxSize {
		offset = stat.Size() - maxSize
	}
	buf := make([]byte, stat.Size()-offset)
	n, err := f.ReadAt(buf, offset)
	if err != nil && n == 0 {
		return fmt.Sprintf("[Error reading file: %v]", err)
	}
	return string(buf[:n])
}

// Save writes the report as JSON into reportsDir and returns the file path
func Save(report *Report, reportsDir string) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.MkdirAll(reportsDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	outputPath := filepath.Join(reportsDir, reportFilePrefix+time.Now().UTC().Format("20060102-150405.000")+".json")
	if err := helpers.WriteFile(outputPath, data, 0600); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	log.Info(fmt.Sprintf("Report saved to: %s", outputPath))
	return outputPath, nil
}

// CleanupOld removes reports older than maxAge
func CleanupOld(reportsDir string, maxAge time.Duration) error {
	entries, err := os.ReadDir(reportsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read reports directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), reportFilePrefix) || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		filePath := filepath.Join(reportsDir, entry.Name())
		if err := os.Remove(filePath); err != nil {
			log.Warning(fmt.Sprintf("Failed to remove old report %s: %v", filePath, err))
		}
	}
	return nil
}
