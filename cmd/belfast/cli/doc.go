// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework of the belfast tool.
//
// A [Command] tree dispatches on the first positional argument. Flags
// are declared as tagged struct fields returned by Command.Params and
// bound with pflag (see [BindFlags]), so commands read their options
// from ordinary Go fields. Unknown commands and flags get a
// "did you mean" suggestion.
//
// Errors returned by commands are mapped onto a [ToolError] category by
// [Classify], which decides the exit code: 2 for bad input, 3 when the
// principal is not signed in or lacks a permission, 1 otherwise. An
// [ExitError] exits with its code and prints nothing more.
//
// [SessionFile] keeps the admin cookie jar between invocations, mode
// 0600 and optionally age-encrypted. [Prompter] reads passwords from a
// file, standard input, or the terminal with echo disabled.
package cli
