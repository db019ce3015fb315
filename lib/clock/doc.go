// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock is the time source for everything in the console that
// waits: registration challenge polling, request retry backoff, and
// session expiry checks.
//
// Components take a Clock instead of calling the time package. The CLI
// passes Real(); tests pass Fake() and move time forward explicitly:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	flow := registration.New(registration.Config{Clock: fake, ...})
//	go flow.Poll(ctx)
//	fake.WaitForWaiters(1)
//	fake.Advance(3 * time.Second)
//
// WaitForWaiters closes the race between a goroutine registering a
// ticker and the test advancing past it.
package clock
