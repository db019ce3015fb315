// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package webauthn

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PublicKeyType is the only credential type WebAuthn defines.
const PublicKeyType = "public-key"

// CredentialDescriptor identifies an existing credential, in
// excludeCredentials and allowCredentials lists.
type CredentialDescriptor struct {
	ID         Bytes    `json:"id"`
	Type       string   `json:"type"`
	Transports []string `json:"transports,omitempty"`
}

// RelyingParty is the rp entity of creation options.
type RelyingParty struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// User is the user entity of creation options. ID is the opaque user
// handle the authenticator stores.
type User struct {
	ID          Bytes  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// CredentialParameter is one acceptable key algorithm (COSE id).
type CredentialParameter struct {
	Type string `json:"type"`
	Alg  int64  `json:"alg"`
}

// AuthenticatorSelection constrains which authenticator may register.
type AuthenticatorSelection struct {
	AuthenticatorAttachment string `json:"authenticatorAttachment,omitempty"`
	ResidentKey             string `json:"residentKey,omitempty"`
	RequireResidentKey      bool   `json:"requireResidentKey,omitempty"`
	UserVerification        string `json:"userVerification,omitempty"`
}

// CreationOptions are PublicKeyCredentialCreationOptions with binary
// fields decoded.
type CreationOptions struct {
	Challenge              Bytes                   `json:"challenge"`
	RP                     RelyingParty            `json:"rp"`
	User                   User                    `json:"user"`
	PubKeyCredParams       []CredentialParameter   `json:"pubKeyCredParams"`
	Timeout                int64                   `json:"timeout,omitempty"`
	Attestation            string                  `json:"attestation,omitempty"`
	ExcludeCredentials     []CredentialDescriptor  `json:"excludeCredentials,omitempty"`
	AuthenticatorSelection *AuthenticatorSelection `json:"authenticatorSelection,omitempty"`
	Extensions             json.RawMessage         `json:"extensions,omitempty"`
}

// RequestOptions are PublicKeyCredentialRequestOptions with binary
// fields decoded.
type RequestOptions struct {
	Challenge        Bytes                  `json:"challenge"`
	Timeout          int64                  `json:"timeout,omitempty"`
	RPID             string                 `json:"rpId,omitempty"`
	AllowCredentials []CredentialDescriptor `json:"allowCredentials,omitempty"`
	UserVerification string                 `json:"userVerification,omitempty"`
	Extensions       json.RawMessage        `json:"extensions,omitempty"`
}

// CeremonyTimeout returns the server's requested timeout, or fallback
// when none was given.
func (o *CreationOptions) CeremonyTimeout(fallback time.Duration) time.Duration {
	return ceremonyTimeout(o.Timeout, fallback)
}

// CeremonyTimeout returns the server's requested timeout, or fallback
// when none was given.
func (o *RequestOptions) CeremonyTimeout(fallback time.Duration) time.Duration {
	return ceremonyTimeout(o.Timeout, fallback)
}

func ceremonyTimeout(milliseconds int64, fallback time.Duration) time.Duration {
	if milliseconds <= 0 {
		return fallback
	}
	return time.Duration(milliseconds) * time.Millisecond
}

// ParseCreationOptions decodes the publicKey member of a passkey
// registration options response.
func ParseCreationOptions(raw json.RawMessage) (*CreationOptions, error) {
	var options CreationOptions
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil, fmt.Errorf("webauthn: parsing creation options: %w", err)
	}
	if len(options.Challenge) == 0 {
		return nil, errors.New("webauthn: creation options have no challenge")
	}
	if len(options.User.ID) == 0 {
		return nil, errors.New("webauthn: creation options have no user id")
	}
	return &options, nil
}

// ParseRequestOptions decodes the publicKey member of a passkey
// authentication options response.
func ParseRequestOptions(raw json.RawMessage) (*RequestOptions, error) {
	var options RequestOptions
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil, fmt.Errorf("webauthn: parsing request options: %w", err)
	}
	if len(options.Challenge) == 0 {
		return nil, errors.New("webauthn: request options have no challenge")
	}
	return &options, nil
}
