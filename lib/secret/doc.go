// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds passwords for the lifetime of a console
// operation.
//
// A [Buffer] lives in an anonymous mmap region outside the Go heap,
// excluded from core dumps and locked into RAM when the process
// memlock limit allows. Close zeroes and unmaps it. The registration
// flow keeps the candidate password in a Buffer between challenge
// creation and the automatic player login, and the session store takes
// Buffers for every credential it forwards.
//
// Sending a password to the server requires a heap string
// ([Buffer.String]) at the JSON boundary; that copy is short-lived and
// unavoidable.
package secret
