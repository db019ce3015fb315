// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package webauthn

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

var (
	alphabetFixer = strings.NewReplacer("+", "-", "/", "_")
	strictRawURL  = base64.RawURLEncoding.Strict()
)

// Encode returns the unpadded base64url form of data.
func Encode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode parses base64url. Padding and the standard alphabet's '+' and
// '/' are tolerated, since some servers and tools emit them. Unused
// trailing bits must be zero, so Encode(Decode(s)) reproduces s up to
// padding and alphabet.
func Decode(value string) ([]byte, error) {
	normalized := alphabetFixer.Replace(strings.TrimRight(value, "="))
	data, err := strictRawURL.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("webauthn: invalid base64url: %w", err)
	}
	return data, nil
}

// Bytes is binary data carried as base64url in JSON.
type Bytes []byte

func (b Bytes) String() string { return Encode(b) }

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(Encode(b))
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}
	var encoded string
	if err := json.Unmarshal(data, &encoded); err != nil {
		return fmt.Errorf("webauthn: binary field must be a base64url string: %w", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		return err
	}
	*b = decoded
	return nil
}
