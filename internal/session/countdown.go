package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// Ticker abstracts time.Ticker so tests can drive the countdown manually.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type wallTicker struct {
	t *time.Ticker
}

func (w wallTicker) C() <-chan time.Time { return w.t.C }
func (w wallTicker) Stop()               { w.t.Stop() }

func newWallTicker(d time.Duration) Ticker {
	return wallTicker{t: time.NewTicker(d)}
}

// Countdown decrements a remaining-seconds counter once per second while a
// session is open, and fires the expiry callback exactly once when it reaches
// zero. Stop cancels it; expiry after Stop never fires, and Stop after expiry
// is a no-op, so the manual-finish/timeout race collapses to a single
// finalization attempt (the finalizer rejects the loser anyway).
type Countdown struct {
	remaining  atomic.Int64
	ticker     Ticker
	done       chan struct{}
	expireOnce sync.Once
	stopOnce   sync.Once
	onExpire   func()
}

type CountdownConfig struct {
	// NewTickerFunc overrides the wall-clock ticker, for tests.
	NewTickerFunc func(d time.Duration) Ticker
}

func StartCountdown(d time.Duration, onExpire func()) *Countdown {
	return StartCountdownWithConfig(d, onExpire, CountdownConfig{})
}

func StartCountdownWithConfig(d time.Duration, onExpire func(), c CountdownConfig) *Countdown {
	newTicker := c.NewTickerFunc
	if newTicker == nil {
		newTicker = newWallTicker
	}

	cd := &Countdown{
		ticker:   newTicker(time.Second),
		done:     make(chan struct{}),
		onExpire: onExpire,
	}
	cd.remaining.Store(int64(d / time.Second))

	go cd.run()

	return cd
}

func (cd *Countdown) run() {
	defer cd.ticker.Stop()

	for {
		select {
		case <-cd.done:
			return
		case <-cd.ticker.C():
			if cd.remaining.Add(-1) <= 0 {
				cd.expire()
				return
			}
		}
	}
}

func (cd *Countdown) expire() {
	cd.expireOnce.Do(func() {
		if cd.onExpire != nil {
			cd.onExpire()
		}
	})
}

// Remaining returns the seconds left, never below zero.
func (cd *Countdown) Remaining() int64 {
	if r := cd.remaining.Load(); r > 0 {
		return r
	}

	return 0
}

// Stop cancels the countdown without firing the expiry callback.
func (cd *Countdown) Stop() {
	cd.stopOnce.Do(func() {
		// Suppress a concurrent expiry, then release the run loop.
		cd.expireOnce.Do(func() {})
		close(cd.done)
	})
}
