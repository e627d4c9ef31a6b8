// Copyright (c) 2025 privateLINE, LLC.

package firewall

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/swapnilsparsh/devsVPN/netlock/helpers"
	"github.com/swapnilsparsh/devsVPN/netlock/service/platform"
	"github.com/swapnilsparsh/devsVPN/netlock/shell"
)

// pf evaluates sub-anchors of 'com.apple' from the default /etc/pf.conf
const pfAnchor = "com.apple/250.NetLock"

// pfEngine - packet filter (pf) backend.
// Rules live in our anchor, which is fully reloaded on every change.
type pfEngine struct {
	mutex sync.Mutex

	anchorFile string
	tokenFile  string
	token      string
	isStarted  bool

	rules     map[uint64]string
	lastID    uint64
	lastError string
}

func newEngine() Engine {
	return &pfEngine{rules: make(map[uint64]string)}
}

func (e *pfEngine) fail(err error) error {
	e.lastError = err.Error()
	return err
}

func (e *pfEngine) pfctl(args ...string) (string, error) {
	outText, outErrText, _, _, err := shell.ExecAndGetOutput(log, 64*1024, "", platform.PfctlBinPath(), args...)
	return outText + outErrText, err
}

func (e *pfEngine) Init(serviceName string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	e.anchorFile = filepath.Join(os.TempDir(), serviceName+".pf.conf")
	e.tokenFile = e.anchorFile + ".token"
	return nil
}

func (e *pfEngine) Start(desc ServiceDescriptor) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.isStarted {
		return nil
	}

	out, err := e.pfctl("-E")
	if err != nil {
		return e.fail(fmt.Errorf("failed to enable pf: %w", err))
	}
	e.token = parsePfToken(out)
	if len(e.token) == 0 {
		log.Warning("pf reference token not received; pf will stay enabled after stop")
	} else if err := helpers.WriteFile(e.tokenFile, []byte(e.token), 0600); err != nil {
		log.Warning("failed to save pf reference token: ", err)
	}

	e.isStarted = true
	if err := e.reload(); err != nil {
		e.release()
		return err
	}
	log.Info(fmt.Sprintf("pf anchor '%s' active (%s)", pfAnchor, desc.Description))
	return nil
}

func (e *pfEngine) Stop() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.isStarted {
		return nil
	}
	if _, err := e.pfctl("-a", pfAnchor, "-F", "all"); err != nil {
		log.Warning("failed to flush pf anchor: ", err)
	}
	e.rules = make(map[uint64]string)
	os.Remove(e.anchorFile)
	return e.release()
}

func (e *pfEngine) release() error {
	e.isStarted = false
	if len(e.token) == 0 {
		return nil
	}
	token := e.token
	e.token = ""
	os.Remove(e.tokenFile)
	if _, err := e.pfctl("-X", token); err != nil {
		return e.fail(fmt.Errorf("failed to release pf token: %w", err))
	}
	return nil
}

// Cleanup flushes the anchor and releases the pf reference left by a previous process
func (e *pfEngine) Cleanup() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if e.isStarted {
		return e.fail(fmt.Errorf("engine is running"))
	}

	var errs []error
	if _, err := e.pfctl("-a", pfAnchor, "-F", "all"); err != nil {
		errs = append(errs, fmt.Errorf("failed to flush pf anchor: %w", err))
	}
	os.Remove(e.anchorFile)

	if data, err := os.ReadFile(e.tokenFile); err == nil {
		if token := strings.TrimSpace(string(data)); len(token) > 0 {
			log.Info("releasing pf reference left by a previous run")
			if _, err := e.pfctl("-X", token); err != nil {
				// the token is gone when pf was reset meanwhile
				log.Warning("failed to release stale pf token: ", err)
			}
		}
		os.Remove(e.tokenFile)
	}

	if err := errors.Join(errs...); err != nil {
		return e.fail(err)
	}
	return nil
}

func (e *pfEngine) AddRule(rule Rule) (uint64, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if !e.isStarted {
		return 0, e.fail(fmt.Errorf("engine not started"))
	}
	line, err := pfRuleLine(rule)
	if err != nil {
		return 0, e.fail(fmt.Errorf("rule '%s': %w", rule.Name, err))
	}

	id := e.lastID + 1
	e.rules[id] = line
	if err := e.reload(); err != nil {
		delete(e.rules, id)
		return 0, err
	}
	e.lastID = id
	return id, nil
}

func (e *pfEngine) RemoveRule(id uint64) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	line, ok := e.rules[id]
	if !ok {
		return e.fail(fmt.Errorf("pf rule %d not found", id))
	}
	delete(e.rules, id)
	if err := e.reload(); err != nil {
		e.rules[id] = line
		return err
	}
	return nil
}

func (e *pfEngine) LastError() string {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.lastError
}

func (e *pfEngine) reload() error {
	ids := make([]uint64, 0, len(e.rules))
	for id := range e.rules {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var b strings.Builder
	for _, id := range ids {
		b.WriteString(e.rules[id])
		b.WriteString("\n")
	}

	if err := helpers.WriteFile(e.anchorFile, []byte(b.String()), 0600); err != nil {
		return e.fail(fmt.Errorf("failed to write pf anchor file: %w", err))
	}
	if out, err := e.pfctl("-a", pfAnchor, "-f", e.anchorFile); err != nil {
		return e.fail(fmt.Errorf("failed to load pf anchor: %w (%s)", err, strings.TrimSpace(out)))
	}
	return nil
}
