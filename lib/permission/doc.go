// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package permission answers "may the current principal do this" from
// the table the server returns at GET /me/permissions.
//
// The table maps resource keys ("players", "server", "admin.authz",
// ...) to four flags. Checks compose them so that an "any" grant
// implies the matching "self" grant:
//
//	read_self  = read_self || read_any
//	read_any   = read_any
//	write_self = write_self || write_any
//	write_any  = write_any
//
// A key missing from the table grants nothing. The server enforces
// every permission itself; these checks only decide what the console
// offers and which denial it shows instead of an empty view.
//
// A [Cache] follows the session store: it loads when someone signs in,
// reloads when the principal changes and clears on sign-out. [Admin]
// wraps the RBAC editing endpoints and reloads the cache after each
// edit.
package permission
