// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package registrationui is the terminal screen for player
// registration, built on bubbletea. It is a thin view over a
// [registration.Flow]: the model submits the form, starts the
// background poll and forwards the PIN, and redraws whenever the flow
// publishes a new snapshot.
package registrationui
