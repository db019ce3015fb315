// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import "github.com/belfast-foundation/belfast-console/lib/tui"

// FilterKeys returns the keys matching pattern, best match first. An
// empty pattern returns keys unchanged.
func FilterKeys(keys []string, pattern string) []string {
	ranked := tui.Rank(keys, pattern)
	filtered := make([]string, len(ranked))
	for index, match := range ranked {
		filtered[index] = match.Text
	}
	return filtered
}
