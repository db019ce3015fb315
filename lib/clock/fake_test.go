// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAfterFiresAtDeadline(t *testing.T) {
	c := Fake(epoch)
	channel := c.After(3 * time.Second)

	c.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before its deadline")
	default:
	}

	c.Advance(time.Second)
	select {
	case fired := <-channel:
		if !fired.Equal(epoch.Add(3 * time.Second)) {
			t.Errorf("fired at %v, want %v", fired, epoch.Add(3*time.Second))
		}
	default:
		t.Fatal("After did not fire at its deadline")
	}
	if c.Pending() != 0 {
		t.Errorf("Pending = %d after one-shot fired, want 0", c.Pending())
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	c := Fake(epoch)
	select {
	case <-c.After(0):
	default:
		t.Fatal("After(0) did not fire immediately")
	}
}

func TestFakeTickerReschedules(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for i := 1; i <= 3; i++ {
		c.Advance(3 * time.Second)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("tick %d missing", i)
		}
	}
	if c.Pending() != 1 {
		t.Errorf("Pending = %d, want 1 live ticker", c.Pending())
	}
}

func TestFakeTickerStop(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Second)
	ticker.Stop()
	c.Advance(5 * time.Second)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker delivered a tick")
	default:
	}
	if c.Pending() != 0 {
		t.Errorf("Pending = %d after Stop, want 0", c.Pending())
	}
}

func TestFakeTickerDropsWhenFull(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(time.Second)
	defer ticker.Stop()

	c.Advance(10 * time.Second)
	<-ticker.C
	select {
	case <-ticker.C:
		t.Fatal("ticker queued more than one tick")
	default:
	}
}

func TestWaitForWaiters(t *testing.T) {
	c := Fake(epoch)
	done := make(chan struct{})
	go func() {
		c.Sleep(time.Minute)
		close(done)
	}()

	c.WaitForWaiters(1)
	c.Advance(time.Minute)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestNewTickerPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewTicker(0) did not panic")
		}
	}()
	Fake(epoch).NewTicker(0)
}
