// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/belfast-foundation/belfast-console/lib/secret"
)

// ErrNotSealed is returned by Open for data that is not an age file.
var ErrNotSealed = errors.New("sealed: data is not age-encrypted")

// Identity is an age x25519 identity loaded from a key file. The
// private half never leaves the age library's own structures; Recipient
// is the public half and is safe to print.
type Identity struct {
	identity  *age.X25519Identity
	Recipient string
}

// GenerateIdentity creates a new identity and writes it to path in the
// age-keygen file format, mode 0600. An existing file is not replaced.
func GenerateIdentity(path string) (*Identity, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating identity: %w", err)
	}
	var contents bytes.Buffer
	fmt.Fprintf(&contents, "# created: %s\n", time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&contents, "# public key: %s\n", identity.Recipient())
	fmt.Fprintf(&contents, "%s\n", identity)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		secret.Zero(contents.Bytes())
		return nil, fmt.Errorf("sealed: %w", err)
	}
	_, writeErr := file.Write(contents.Bytes())
	secret.Zero(contents.Bytes())
	closeErr := file.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("sealed: writing %s: %w", path, err)
	}
	return &Identity{identity: identity, Recipient: identity.Recipient().String()}, nil
}

// LoadIdentity reads an age-keygen style key file. Comment lines are
// ignored; the first x25519 identity in the file is used.
func LoadIdentity(path string) (*Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sealed: %w", err)
	}
	protected, err := secret.NewFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting key file: %w", err)
	}
	defer protected.Close()

	identities, err := age.ParseIdentities(bytes.NewReader(protected.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing %s: %w", path, err)
	}
	for _, candidate := range identities {
		if identity, ok := candidate.(*age.X25519Identity); ok {
			return &Identity{identity: identity, Recipient: identity.Recipient().String()}, nil
		}
	}
	return nil, fmt.Errorf("sealed: %s holds no x25519 identity", path)
}

// Seal encrypts plaintext to the given age1... recipients and returns
// ASCII-armored ciphertext.
func Seal(plaintext []byte, recipients ...string) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, errors.New("sealed: at least one recipient is required")
	}
	parsed := make([]age.Recipient, 0, len(recipients))
	for _, recipient := range recipients {
		value, err := age.ParseX25519Recipient(recipient)
		if err != nil {
			return nil, fmt.Errorf("sealed: recipient %q: %w", recipient, err)
		}
		parsed = append(parsed, value)
	}

	var output bytes.Buffer
	armored := armor.NewWriter(&output)
	writer, err := age.Encrypt(armored, parsed...)
	if err != nil {
		return nil, fmt.Errorf("sealed: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("sealed: encrypting: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("sealed: encrypting: %w", err)
	}
	if err := armored.Close(); err != nil {
		return nil, fmt.Errorf("sealed: armoring: %w", err)
	}
	return output.Bytes(), nil
}

// SealTo encrypts plaintext to the identity's own recipient.
func (i *Identity) SealTo(plaintext []byte) ([]byte, error) {
	return Seal(plaintext, i.Recipient)
}

// Open decrypts ciphertext produced by Seal, armored or binary. The
// plaintext is returned in locked memory.
func (i *Identity) Open(ciphertext []byte) (*secret.Buffer, error) {
	var source io.Reader
	switch {
	case bytes.HasPrefix(ciphertext, []byte(armor.Header)):
		source = armor.NewReader(bytes.NewReader(ciphertext))
	case bytes.HasPrefix(ciphertext, []byte("age-encryption.org/")):
		source = bytes.NewReader(ciphertext)
	default:
		return nil, ErrNotSealed
	}
	reader, err := age.Decrypt(source, i.identity)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, errors.New("sealed: empty plaintext")
	}
	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("sealed: protecting plaintext: %w", err)
	}
	return buffer, nil
}

// IsSealed reports whether data looks like age output.
func IsSealed(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return bytes.HasPrefix(trimmed, []byte(armor.Header)) ||
		bytes.HasPrefix(trimmed, []byte("age-encryption.org/"))
}
