// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a Clock whose time only moves when Advance is called.
// Safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []*waiter
	changed *sync.Cond
}

type waiter struct {
	deadline time.Time
	channel  chan time.Time
	// interval is non-zero for tickers, which are rescheduled after
	// each fire instead of being dropped.
	interval time.Duration
	stopped  bool
}

// Fake returns a FakeClock reading initial.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{now: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.addLocked(&waiter{deadline: c.now.Add(d), channel: channel})
	return channel
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	channel := make(chan time.Time, 1)
	w := &waiter{deadline: c.now.Add(d), channel: channel, interval: d}
	c.addLocked(w)
	return &Ticker{C: channel, stop: func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		w.stopped = true
		c.changed.Broadcast()
	}}
}

func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

func (c *FakeClock) addLocked(w *waiter) {
	c.waiters = append(c.waiters, w)
	c.changed.Broadcast()
}

// Advance moves time forward by d and fires every waiter whose
// deadline is reached, in deadline order. A ticker spanning several
// intervals fires once per interval; sends never block, so ticks
// beyond the channel buffer are dropped.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := c.now
	c.mu.Unlock()

	for {
		due := c.collect(target)
		if len(due) == 0 {
			return
		}
		for _, w := range due {
			select {
			case w.channel <- target:
			default:
			}
		}
	}
}

func (c *FakeClock) collect(target time.Time) []*waiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	var due, pending []*waiter
	for _, w := range c.waiters {
		switch {
		case w.stopped:
		case w.deadline.After(target):
			pending = append(pending, w)
		default:
			due = append(due, w)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	for _, w := range due {
		if w.interval > 0 {
			w.deadline = w.deadline.Add(w.interval)
			pending = append(pending, w)
		}
	}
	c.waiters = pending
	c.changed.Broadcast()
	return due
}

// WaitForWaiters blocks until at least n timers or tickers are
// registered and not stopped.
func (c *FakeClock) WaitForWaiters(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}

// Pending reports the number of active waiters.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	count := 0
	for _, w := range c.waiters {
		if !w.stopped {
			count++
		}
	}
	return count
}
