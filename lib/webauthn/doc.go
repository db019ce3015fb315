// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package webauthn converts between the admin API's JSON form of
// WebAuthn ceremonies and Go values, and drives an [Authenticator] to
// perform them.
//
// On the wire every binary field (challenge, user id, credential ids,
// clientDataJSON, attestationObject, authenticatorData, signature,
// userHandle) is unpadded base64url. In Go those fields are [Bytes],
// which carries raw bytes and marshals back to base64url. Parsing
// creation or request options is therefore a JSON decode, and
// serializing a credential is a JSON encode.
//
// The cryptographic ceremony itself is not performed here. A
// [CommandAuthenticator] delegates to an external helper program (a
// platform authenticator bridge or a security-key tool); tests use
// webauthntest.Authenticator.
//
// [ParseAttestationObject] and [ParseAuthenticatorData] decode the
// CBOR an authenticator returns so the console can show what was
// registered (AAGUID, flags, algorithm) before sending it to the
// server.
package webauthn
