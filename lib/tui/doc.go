// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui provides shared terminal components for the console's
// interactive and tabular output: a color theme, fzf-style fuzzy
// matching, and ANSI-aware table rendering.
//
// The registration viewer (lib/registrationui) and the CLI's list
// commands both draw through this package so that colors, truncation
// and match highlighting look the same everywhere.
package tui
