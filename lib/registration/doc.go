// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package registration runs the player sign-up handshake.
//
// A candidate player names their commander and picks a password. The
// server opens a challenge and delivers a PIN inside the game. The
// challenge is consumed either when the player confirms it in-game or
// when they type the PIN into the console. Either way the [Flow] then
// signs the player in with the password they chose, exactly once:
//
//	idle -> pending -> (verifying) -> finalizing -> signed_in
//	                \-> expired          \-> finalize_failed
//
// [Flow.Poll] re-checks a pending challenge every three seconds.
// [Flow.Verify] and polling may run concurrently; whichever first sees
// the challenge consumed performs the sign-in and the other backs off.
//
// The flow holds its own copy of the password in locked memory and
// zeroes it when the challenge ends or [Flow.Reset] is called.
package registration
