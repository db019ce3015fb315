// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package session tracks who the console is signed in as.
//
// A [Store] holds at most one operator session and one player session
// on top of a [console.Client]. The operator session is established by
// password, bootstrap or passkey sign-in and is always re-read from
// GET /auth/session, which is also where the CSRF token comes from.
// The player session comes from commander id and password and lives
// only in memory.
//
// Every change of principal is published to subscribers as a
// [Transition]. The permission cache follows these transitions to
// decide when its table is stale:
//
//	store.Subscribe(func(t session.Transition) {
//		if t.Current.Kind() == session.None {
//			// drop anything derived from the old principal
//		}
//	})
//
// A 401 from any non-authentication route means the server forgot the
// session; the store drops every local session when that happens.
package session
