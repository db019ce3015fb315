// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package console is a client for the game server's admin REST API.
//
// Every endpoint answers with an envelope: {"ok": true, "data": ...}
// on success and {"ok": false, "error": {"message", "code",
// "details"}} on failure. [Request] unwraps the envelope into a
// [Response] of the caller's type; the typed methods on [Client] are
// thin wrappers over it.
//
// Authentication is cookie based. The Client owns a cookie jar, so a
// successful login on one call authenticates every later call through
// the same Client. Mutating requests (POST, PUT, PATCH, DELETE) carry
// the X-CSRF-Token header once a token is known; the session store
// installs the token after reading /auth/session.
//
// Every failure is an [*APIError]: non-2xx responses carry the server's
// message and code, transport failures carry StatusCode 0 and wrap the
// cause. [APIError.Retryable] separates transient failures from
// permanent rejections.
//
// A 401 from an endpoint outside the authentication routes triggers the
// hook installed with [Client.OnUnauthorized], which the session store
// uses to drop local state when the server no longer recognizes it.
package console
