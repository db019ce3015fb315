// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/belfast-foundation/belfast-console/lib/testutil"
)

func TestGenerateAndLoadIdentity(t *testing.T) {
	path := filepath.Join(testutil.PrivateDir(t), "session.key")
	generated, err := GenerateIdentity(path)
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	if !strings.HasPrefix(generated.Recipient, "age1") {
		t.Errorf("Recipient = %q, want age1 prefix", generated.Recipient)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadIdentity(path)
	if err != nil {
		t.Fatalf("LoadIdentity: %v", err)
	}
	if loaded.Recipient != generated.Recipient {
		t.Errorf("loaded recipient %q, generated %q", loaded.Recipient, generated.Recipient)
	}

	if _, err := GenerateIdentity(path); err == nil {
		t.Error("GenerateIdentity replaced an existing key file")
	}
}

func TestLoadIdentityRejectsGarbage(t *testing.T) {
	path := testutil.WriteFile(t, testutil.PrivateDir(t), "bad.key", "# nothing here\nnot-a-key\n")
	if _, err := LoadIdentity(path); err == nil {
		t.Error("LoadIdentity accepted a file without a key")
	}
	if _, err := LoadIdentity(filepath.Join(t.TempDir(), "missing.key")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}

func TestSealAndOpen(t *testing.T) {
	identity, err := GenerateIdentity(filepath.Join(testutil.PrivateDir(t), "session.key"))
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	plaintext := []byte(`{"cookies":[{"name":"belfast_admin_session","value":"token"}]}`)

	ciphertext, err := identity.SealTo(plaintext)
	if err != nil {
		t.Fatalf("SealTo: %v", err)
	}
	if bytes.Contains(ciphertext, []byte("belfast_admin_session")) {
		t.Fatal("ciphertext contains the plaintext")
	}
	if !IsSealed(ciphertext) {
		t.Error("IsSealed(ciphertext) = false")
	}

	opened, err := identity.Open(ciphertext)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer opened.Close()
	if !bytes.Equal(opened.Bytes(), plaintext) {
		t.Errorf("Open = %q, want %q", opened.Bytes(), plaintext)
	}
}

func TestOpenWithWrongIdentity(t *testing.T) {
	directory := testutil.PrivateDir(t)
	owner, err := GenerateIdentity(filepath.Join(directory, "owner.key"))
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	stranger, err := GenerateIdentity(filepath.Join(directory, "stranger.key"))
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	ciphertext, err := owner.SealTo([]byte("session"))
	if err != nil {
		t.Fatalf("SealTo: %v", err)
	}
	if _, err := stranger.Open(ciphertext); err == nil {
		t.Error("a different identity opened the session")
	}
}

func TestOpenPlainData(t *testing.T) {
	identity, err := GenerateIdentity(filepath.Join(testutil.PrivateDir(t), "session.key"))
	if err != nil {
		t.Fatalf("GenerateIdentity: %v", err)
	}
	plain := []byte(`{"base_url":"http://localhost:2289/api/v1"}`)
	if IsSealed(plain) {
		t.Error("IsSealed(json) = true")
	}
	if _, err := identity.Open(plain); !errors.Is(err, ErrNotSealed) {
		t.Errorf("Open(json) = %v, want ErrNotSealed", err)
	}
}

func TestSealRecipients(t *testing.T) {
	if _, err := Seal([]byte("x")); err == nil {
		t.Error("Seal without recipients should fail")
	}
	if _, err := Seal([]byte("x"), "not-a-recipient"); err == nil {
		t.Error("Seal accepted an invalid recipient")
	}
}
