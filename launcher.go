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

package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/swapnilsparsh/devsVPN/netlock/helpers"
	"github.com/swapnilsparsh/devsVPN/netlock/logger"
	"github.com/swapnilsparsh/devsVPN/netlock/metrics"
	"github.com/swapnilsparsh/devsVPN/netlock/netinfo"
	"github.com/swapnilsparsh/devsVPN/netlock/rageshake"
	"github.com/swapnilsparsh/devsVPN/netlock/service/firewall"
	"github.com/swapnilsparsh/devsVPN/netlock/service/netlock"
	"github.com/swapnilsparsh/devsVPN/netlock/service/platform"
	"github.com/swapnilsparsh/devsVPN/netlock/service/preferences"
	"github.com/swapnilsparsh/devsVPN/netlock/service/recovery"
)

var log *logger.Logger

// reports older than this are removed on start
const reportsMaxAge = 30 * 24 * time.Hour

func init() {
	log = logger.NewLogger("launch")
}

type hostList []netip.Prefix

func (h *hostList) String() string {
	items := make([]string, 0, len(*h))
	for _, p := range *h {
		items = append(items, p.String())
	}
	return strings.Join(items, ",")
}

// Set accepts an IP address or a CIDR
func (h *hostList) Set(value string) error {
	if p, err := netip.ParsePrefix(value); err == nil {
		*h = append(*h, p)
		return nil
	}
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return fmt.Errorf("bad host '%s': expected IP address or CIDR", value)
	}
	*h = append(*h, netip.PrefixFrom(addr, addr.BitLen()))
	return nil
}

type launchArgs struct {
	settingsFile string
	recoveryFile string
	logFile      string
	isCleanup    bool
	isLock       bool
	isReport     bool
	tunnelIface  string
	vpnHosts     hostList
	metricsAddr  string
}

func parseArgs(args []string) (launchArgs, error) {
	var a launchArgs
	fs := flag.NewFlagSet(helpers.ServiceName, flag.ContinueOnError)
	fs.StringVar(&a.settingsFile, "settings", "", "preferences file (default: platform specific)")
	fs.StringVar(&a.recoveryFile, "recovery", "", "recovery file (default: platform specific)")
	fs.StringVar(&a.logFile, "log", "", "log file (default: platform specific)")
	fs.BoolVar(&a.isCleanup, "cleanup", false, "restore network configuration left by a previous run and exit")
	fs.BoolVar(&a.isLock, "lock", false, "lock the network until SIGINT/SIGTERM")
	fs.BoolVar(&a.isReport, "report", false, "save a diagnostic report (network configuration, recovery data, log tail) and exit")
	fs.StringVar(&a.tunnelIface, "tunnel-iface", "", "tunnel interface allowed while locked")
	fs.Var(&a.vpnHosts, "vpn-host", "VPN server address allowed while locked (repeatable)")
	fs.StringVar(&a.metricsAddr, "metrics", "", "address to expose prometheus metrics on (e.g. 127.0.0.1:9101)")
	err := fs.Parse(args)
	return a, err
}

// Launch - initialize and start service
func Launch() int {
	args, err := parseArgs(os.Args[1:])
	if err != nil {
		return 2
	}

	warnings, errs, logInfo := platform.Init()
	platform.Override(args.settingsFile, args.recoveryFile, args.logFile)

	if err := logger.Init(platform.LogFile()); err != nil {
		logger.Warning("unable to open log file: ", err)
	}
	defer logger.Close()

	prefs := loadPreferences()
	logger.Enable(prefs.IsLogging || args.isCleanup)

	ops := netinfo.New()
	var session *netlock.Session
	shaker := rageshake.New(ops, platform.LogFile(), platform.RecoveryFile(), func() interface{} {
		if session == nil {
			return nil
		}
		return session.Status()
	})

	// Now that logger is initialized, set up panic handler - ensure we log panic message (at least on this goroutine) before exiting on it
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Errorf("PANIC at runtime: %v", r))
			logger.Error(string(debug.Stack()))
			if _, err := rageshake.Save(shaker.Collect(fmt.Sprintf("panic: %v", r)), reportsDir()); err != nil {
				logger.Error(err)
			}
			os.Exit(1)
		}
	}()

	for _, platformInitLogItem := range logInfo {
		logger.Info(fmt.Sprintf("INIT: %s", platformInitLogItem))
	}
	for _, w := range warnings {
		logger.Warning(w)
	}
	if len(errs) > 0 {
		for _, e := range errs {
			logger.Error(e)
		}
		logger.Info("Failed to start due to initialization errors")
		return 1
	}

	tzName, tzOffsetSec := time.Now().Zone()
	log.Info(fmt.Sprintf("Starting %s [%s,%s] [timezone: %s %d (%dh)] [pid: %d; ppid: %d; arch: %dbit]",
		helpers.ServiceName, runtime.GOOS, runtime.GOARCH,
		tzName, tzOffsetSec, tzOffsetSec/(60*60),
		os.Getpid(), os.Getppid(), strconv.IntSize))
	log.Info(fmt.Sprintf("args: %s", os.Args))

	if !doCheckIsAdmin() {
		logger.Warning("------------------------------------")
		logger.Warning("!!! NOT A PRIVILEGED USER !!!")
		logger.Warning("Please, ensure you are running an application with privileged rights.")
		logger.Warning("Otherwise, application will not work correctly.")
		logger.Warning("------------------------------------")
	}

	if err := rageshake.CleanupOld(reportsDir(), reportsMaxAge); err != nil {
		log.Warning(err)
	}
	if args.isReport {
		path, err := rageshake.Save(shaker.Collect("requested"), reportsDir())
		if err != nil {
			log.Error(err)
			return 1
		}
		fmt.Println(path)
		return 0
	}

	if len(args.metricsAddr) > 0 {
		startMetricsServer(args.metricsAddr)
	}

	log.Info(fmt.Sprintf("DNS switch: %v; IPv6 lock: %v; DNS guard: %v; allow LAN: %v",
		prefs.IsDnsSwitchEnabled(), prefs.IsIPv6LockEnabled(), prefs.IsDnsGuard, prefs.AllowLAN))

	session = netlock.New(netlock.Config{
		ServiceName:   helpers.ServiceName,
		DnsMode:       prefs.DnsMode,
		IPv6Mode:      prefs.IPv6Mode,
		IsDnsGuard:    prefs.IsDnsGuard,
		DnsWatchFiles: platform.DnsWatchFiles(),

		IsInterfaceWatch: true,
	}, firewall.NewEngine(), ops, recovery.NewStore(platform.RecoveryFile()))

	// network configuration left by a crashed run is restored before anything else
	healErr := session.Heal()
	if healErr != nil {
		log.Warning("recovery: ", healErr)
	}

	if args.isCleanup {
		if healErr != nil {
			return 2
		}
		return 0
	}

	if !args.isLock {
		log.Info("nothing to do (use -lock to lock the network)")
		return 0
	}

	// handle interrupt signals; registered before locking so a signal never kills a half-locked process
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc,
		syscall.SIGINT,
		syscall.SIGTERM)
	defer signal.Stop(sigc)

	return runLocked(session, netlock.LockParams{
		DnsServers:      strings.Join(prefs.DnsServersList(), ","),
		TunnelInterface: args.tunnelIface,
		AllowedHosts:    args.vpnHosts,
		AllowLAN:        prefs.AllowLAN,
	}, sigc)
}

func reportsDir() string {
	return filepath.Join(filepath.Dir(platform.LogFile()), "reports")
}

func loadPreferences() *preferences.Preferences {
	prefs := preferences.Create()
	if err := prefs.LoadPreferences(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warning("preferences not loaded, using defaults: ", err)
			return prefs
		}
		// first run: save defaults
		if err := prefs.SavePreferences(); err != nil {
			logger.Warning("failed to save default preferences: ", err)
		}
	}
	return prefs
}

type networkLocker interface {
	Lock(params netlock.LockParams) error
	Unlock() error
}

// runLocked locks the network and unlocks it on the first signal.
// A signal received while locking is in progress unlocks right after locking finishes.
func runLocked(locker networkLocker, params netlock.LockParams, sigc <-chan os.Signal) int {
	lockDone := make(chan error, 1)
	go func() {
		lockDone <- locker.Lock(params)
	}()

	select {
	case err := <-lockDone:
		if err != nil {
			log.Error(err)
			return 1
		}
		log.Info("Network locked. Waiting for a signal to unlock...")
		s := <-sigc
		log.Warning(fmt.Sprintf("SIGNAL received: '%v'. Unlocking...", s))

	case s := <-sigc:
		log.Warning(fmt.Sprintf("SIGNAL received while locking: '%v'. Unlocking when locking finishes...", s))
		if err := <-lockDone; err != nil {
			// failed lock is already rolled back
			log.Error(err)
			return 1
		}
	}

	if err := locker.Unlock(); err != nil {
		log.Warning("some settings were not restored: ", err)
		return 1
	}
	return 0
}
