package main

import (
	"errors"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swapnilsparsh/devsVPN/netlock/service/netlock"
)

func TestParseArgs(t *testing.T) {
	a, err := parseArgs([]string{"-lock", "-tunnel-iface", "wg0", "-vpn-host", "203.0.113.7", "-vpn-host", "2001:db8::/64", "-recovery", "/tmp/r.xml"})
	require.NoError(t, err)
	assert.True(t, a.isLock)
	assert.False(t, a.isCleanup)
	assert.Equal(t, "wg0", a.tunnelIface)
	assert.Equal(t, "/tmp/r.xml", a.recoveryFile)
	assert.Equal(t, "203.0.113.7/32,2001:db8::/64", a.vpnHosts.String())
}

func TestParseArgsBadHost(t *testing.T) {
	_, err := parseArgs([]string{"-vpn-host", "example.com"})
	assert.Error(t, err)
}

type fakeLocker struct {
	mutex    sync.Mutex
	calls    []string
	release  chan struct{} // Lock blocks until closed
	started  chan struct{}
	lockFail error
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{release: make(chan struct{}), started: make(chan struct{})}
}

func (l *fakeLocker) record(call string) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.calls = append(l.calls, call)
}

func (l *fakeLocker) Lock(netlock.LockParams) error {
	close(l.started)
	<-l.release
	l.record("lock")
	return l.lockFail
}

func (l *fakeLocker) Unlock() error {
	l.record("unlock")
	return nil
}

func (l *fakeLocker) recorded() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return append([]string{}, l.calls...)
}

func runLockedAsync(l *fakeLocker, sigc chan os.Signal) <-chan int {
	ret := make(chan int, 1)
	go func() { ret <- runLocked(l, netlock.LockParams{}, sigc) }()
	return ret
}

func TestRunLockedSignalDuringLock(t *testing.T) {
	l := newFakeLocker()
	sigc := make(chan os.Signal, 1)
	ret := runLockedAsync(l, sigc)

	<-l.started
	sigc <- syscall.SIGTERM
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, l.recorded())

	close(l.release)
	select {
	case code := <-ret:
		assert.Equal(t, 0, code)
	case <-time.After(2 * time.Second):
		t.Fatal("not unlocked after a signal received while locking")
	}
	assert.Equal(t, []string{"lock", "unlock"}, l.recorded())
}

func TestRunLockedSignalAfterLock(t *testing.T) {
	l := newFakeLocker()
	close(l.release)
	sigc := make(chan os.Signal, 1)
	ret := runLockedAsync(l, sigc)

	require.Eventually(t, func() bool { return len(l.recorded()) == 1 }, 2*time.Second, 10*time.Millisecond)
	sigc <- syscall.SIGINT
	assert.Equal(t, 0, <-ret)
	assert.Equal(t, []string{"lock", "unlock"}, l.recorded())
}

func TestRunLockedFailedLockSkipsUnlock(t *testing.T) {
	l := newFakeLocker()
	l.lockFail = errors.New("engine start failed")
	sigc := make(chan os.Signal, 1)
	ret := runLockedAsync(l, sigc)

	<-l.started
	sigc <- syscall.SIGINT
	close(l.release)
	assert.Equal(t, 1, <-ret)
	assert.Equal(t, []string{"lock"}, l.recorded())
}
