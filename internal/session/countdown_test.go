package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicker struct {
	c chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }
func (*fakeTicker) Stop()                 {}

func (f *fakeTicker) tick(n int) {
	for i := 0; i < n; i++ {
		f.c <- time.Time{}
	}
}

func startTestCountdown(d time.Duration, onExpire func()) (*Countdown, *fakeTicker) {
	ft := &fakeTicker{c: make(chan time.Time)}

	cd := StartCountdownWithConfig(d, onExpire, CountdownConfig{
		NewTickerFunc: func(time.Duration) Ticker { return ft },
	})

	return cd, ft
}

func TestCountdown_ExpiresOnce(t *testing.T) {
	var fired atomic.Int32
	expired := make(chan struct{})

	cd, ft := startTestCountdown(3*time.Second, func() {
		fired.Add(1)
		close(expired)
	})

	ft.tick(2)
	assert.Equal(t, int64(1), cd.Remaining())
	assert.Equal(t, int32(0), fired.Load())

	ft.tick(1)

	select {
	case <-expired:
	case <-time.After(time.Second):
		t.Fatal("countdown did not expire")
	}

	require.Equal(t, int32(1), fired.Load())
	assert.Zero(t, cd.Remaining())

	// Stop after expiry is a no-op.
	cd.Stop()
	assert.Equal(t, int32(1), fired.Load())
}

func TestCountdown_StopSuppressesExpiry(t *testing.T) {
	var fired atomic.Int32

	cd, ft := startTestCountdown(2*time.Second, func() {
		fired.Add(1)
	})

	ft.tick(1)
	cd.Stop()

	// The run loop has been released; any further expiry path must be inert.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestCountdown_RemainingNeverNegative(t *testing.T) {
	cd, ft := startTestCountdown(time.Second, nil)

	ft.tick(1)
	time.Sleep(20 * time.Millisecond)

	assert.Zero(t, cd.Remaining())
}
