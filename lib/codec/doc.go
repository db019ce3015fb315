// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the console's CBOR configuration.
//
// The admin API speaks JSON. CBOR appears only inside WebAuthn: an
// authenticator's attestationObject is a CBOR map, and the credential
// public key inside authenticator data is a COSE_Key. Encoding uses the
// CTAP2 canonical form (RFC 8949 core deterministic rules with CTAP2
// key ordering) so that locally built attestation objects, for example
// from a test authenticator, are byte-identical to what a hardware key
// would emit.
package codec
