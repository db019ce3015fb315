// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// PrivateDir returns a fresh directory readable only by the current
// user, like the one session files are written to.
func PrivateDir(t testing.TB) string {
	t.Helper()
	directory := filepath.Join(t.TempDir(), "belfast")
	if err := os.Mkdir(directory, 0o700); err != nil {
		t.Fatalf("creating private directory: %v", err)
	}
	return directory
}

// WriteFile writes content to name inside directory and returns the
// full path.
func WriteFile(t testing.TB, directory, name, content string) string {
	t.Helper()
	path := filepath.Join(directory, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}
