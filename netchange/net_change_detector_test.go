package netchange

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeWatch(t *testing.T, events <-chan struct{}) {
	old := watchFunc
	watchFunc = func(stop <-chan struct{}, changed chan<- struct{}) error {
		for {
			select {
			case <-stop:
				return nil
			case <-events:
				notify(changed)
			}
		}
	}
	t.Cleanup(func() { watchFunc = old })
}

func TestBurstCausesSingleNotification(t *testing.T) {
	events := make(chan struct{})
	fakeWatch(t, events)

	var calls atomic.Int32
	d := NewDetector(100*time.Millisecond, func() { calls.Add(1) })
	require.True(t, d.Start())
	assert.False(t, d.Start())

	for i := 0; i < 5; i++ {
		events <- struct{}{}
	}
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	events <- struct{}{}
	assert.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)

	d.Stop()
	assert.False(t, d.IsRunning())
}

func TestStopWithoutChanges(t *testing.T) {
	fakeWatch(t, make(chan struct{}))

	d := NewDetector(time.Second, func() { t.Error("unexpected notification") })
	require.True(t, d.Start())
	assert.True(t, d.IsRunning())
	d.Stop()
	assert.False(t, d.IsRunning())

	// restartable
	require.True(t, d.Start())
	d.Stop()
}
