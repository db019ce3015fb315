// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by the console's tests.
//
// [RequireReceive], [RequireSend] and [RequireClosed] bound a channel
// operation by a wall-clock timeout so a broken test fails instead of
// hanging. They are the only real-clock waits in the test suite;
// everything that sleeps or polls in production code runs on a fake
// clock in tests.
//
// [WriteFile] and [PrivateDir] lay out config and session files the
// way the CLI expects to find them.
//
// All helpers call t.Fatalf on failure.
package testutil
