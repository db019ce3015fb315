// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package webauthn

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/belfast-foundation/belfast-console/lib/codec"
)

// Authenticator data flag bits.
const (
	FlagUserPresent            byte = 0x01
	FlagUserVerified           byte = 0x04
	FlagBackupEligible         byte = 0x08
	FlagBackupState            byte = 0x10
	FlagAttestedCredentialData byte = 0x40
	FlagExtensionData          byte = 0x80
)

// minAuthenticatorData is rpIdHash(32) + flags(1) + signCount(4).
const minAuthenticatorData = 37

// AttestationObject is the decoded attestationObject of a
// registration.
type AttestationObject struct {
	Format    string
	Statement map[string]any
	AuthData  *AuthenticatorData
}

// AuthenticatorData is the decoded authenticator data structure.
type AuthenticatorData struct {
	RPIDHash  [32]byte
	Flags     byte
	SignCount uint32

	// Credential is present when FlagAttestedCredentialData is set.
	Credential *AttestedCredential

	// Extensions is the raw CBOR extension map when FlagExtensionData
	// is set.
	Extensions codec.RawMessage
}

// AttestedCredential is the credential a registration created.
type AttestedCredential struct {
	AAGUID       [16]byte
	CredentialID []byte
	PublicKey    map[int]any
}

// COSE key parameters read by Algorithm.
const (
	coseKeyAlgorithm = 3
)

// Algorithm returns the COSE algorithm identifier of the public key,
// e.g. -7 for ES256.
func (c *AttestedCredential) Algorithm() (int64, bool) {
	switch alg := c.PublicKey[coseKeyAlgorithm].(type) {
	case int64:
		return alg, true
	case uint64:
		return int64(alg), true
	default:
		return 0, false
	}
}

// AAGUIDString formats the AAGUID as a UUID.
func (c *AttestedCredential) AAGUIDString() string {
	a := c.AAGUID
	return fmt.Sprintf("%x-%x-%x-%x-%x", a[0:4], a[4:6], a[6:8], a[8:10], a[10:16])
}

func (d *AuthenticatorData) Has(flag byte) bool { return d.Flags&flag != 0 }

type attestationWire struct {
	Fmt      string         `cbor:"fmt"`
	AttStmt  map[string]any `cbor:"attStmt"`
	AuthData []byte         `cbor:"authData"`
}

// ParseAttestationObject decodes a CBOR attestationObject.
func ParseAttestationObject(data []byte) (*AttestationObject, error) {
	var wire attestationWire
	if err := codec.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("webauthn: decoding attestationObject: %w", err)
	}
	if wire.Fmt == "" {
		return nil, errors.New("webauthn: attestationObject has no fmt")
	}
	authData, err := ParseAuthenticatorData(wire.AuthData)
	if err != nil {
		return nil, err
	}
	if authData.Credential == nil {
		return nil, errors.New("webauthn: attestationObject carries no attested credential")
	}
	return &AttestationObject{
		Format:    wire.Fmt,
		Statement: wire.AttStmt,
		AuthData:  authData,
	}, nil
}

// ParseAuthenticatorData decodes the binary authenticator data.
func ParseAuthenticatorData(data []byte) (*AuthenticatorData, error) {
	if len(data) < minAuthenticatorData {
		return nil, fmt.Errorf("webauthn: authenticator data is %d bytes, need at least %d", len(data), minAuthenticatorData)
	}
	result := &AuthenticatorData{
		Flags:     data[32],
		SignCount: binary.BigEndian.Uint32(data[33:37]),
	}
	copy(result.RPIDHash[:], data[:32])
	rest := data[minAuthenticatorData:]

	if result.Has(FlagAttestedCredentialData) {
		if len(rest) < 18 {
			return nil, errors.New("webauthn: attested credential data truncated")
		}
		credential := &AttestedCredential{}
		copy(credential.AAGUID[:], rest[:16])
		idLength := int(binary.BigEndian.Uint16(rest[16:18]))
		rest = rest[18:]
		if len(rest) < idLength {
			return nil, errors.New("webauthn: credential id truncated")
		}
		credential.CredentialID = append([]byte(nil), rest[:idLength]...)
		rest = rest[idLength:]

		var err error
		rest, err = codec.UnmarshalFirst(rest, &credential.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("webauthn: decoding credential public key: %w", err)
		}
		result.Credential = credential
	}

	if result.Has(FlagExtensionData) {
		var extensions codec.RawMessage
		var err error
		rest, err = codec.UnmarshalFirst(rest, &extensions)
		if err != nil {
			return nil, fmt.Errorf("webauthn: decoding extensions: %w", err)
		}
		result.Extensions = extensions
	}

	if len(rest) != 0 {
		return nil, fmt.Errorf("webauthn: %d trailing bytes after authenticator data", len(rest))
	}
	return result, nil
}
