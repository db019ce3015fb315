// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package webauthn

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// AttestationResponse is the response of a registration ceremony.
type AttestationResponse struct {
	ClientDataJSON    Bytes `json:"clientDataJSON"`
	AttestationObject Bytes `json:"attestationObject"`
}

// RegistrationCredential is a newly created credential in the form
// the server's register/verify endpoint expects.
type RegistrationCredential struct {
	ID       string              `json:"id"`
	RawID    Bytes               `json:"rawId"`
	Type     string              `json:"type"`
	Response AttestationResponse `json:"response"`
}

// AssertionResponse is the response of an authentication ceremony.
// UserHandle is absent for non-discoverable credentials.
type AssertionResponse struct {
	ClientDataJSON    Bytes `json:"clientDataJSON"`
	AuthenticatorData Bytes `json:"authenticatorData"`
	Signature         Bytes `json:"signature"`
	UserHandle        Bytes `json:"userHandle,omitempty"`
}

// AssertionCredential is a signed assertion in the form the server's
// authenticate/verify endpoint expects.
type AssertionCredential struct {
	ID       string            `json:"id"`
	RawID    Bytes             `json:"rawId"`
	Type     string            `json:"type"`
	Response AssertionResponse `json:"response"`
}

// ClientData is the decoded clientDataJSON.
type ClientData struct {
	Type        string `json:"type"`
	Challenge   string `json:"challenge"`
	Origin      string `json:"origin"`
	CrossOrigin bool   `json:"crossOrigin,omitempty"`
}

const (
	ClientDataCreate = "webauthn.create"
	ClientDataGet    = "webauthn.get"
)

// ParseClientData decodes clientDataJSON.
func ParseClientData(data []byte) (*ClientData, error) {
	var clientData ClientData
	if err := json.Unmarshal(data, &clientData); err != nil {
		return nil, fmt.Errorf("webauthn: parsing clientDataJSON: %w", err)
	}
	return &clientData, nil
}

// Check verifies that the client data belongs to a ceremony of the
// given type over challenge. It catches a helper answering the wrong
// request; the server performs the authoritative verification.
func (c *ClientData) Check(ceremony string, challenge []byte) error {
	if c.Type != ceremony {
		return fmt.Errorf("webauthn: client data type %q, want %q", c.Type, ceremony)
	}
	got, err := Decode(c.Challenge)
	if err != nil {
		return fmt.Errorf("webauthn: client data challenge: %w", err)
	}
	if !bytes.Equal(got, challenge) {
		return errors.New("webauthn: client data challenge does not match the request")
	}
	return nil
}

// Validate checks a registration credential against the options it
// answers: the client data, the relying party and user presence in
// the attested authenticator data, and that the attested credential
// is the one the credential names.
func (c *RegistrationCredential) Validate(options *CreationOptions) error {
	if err := checkIdentity(c.ID, c.RawID, c.Type); err != nil {
		return err
	}
	if len(c.Response.AttestationObject) == 0 {
		return errors.New("webauthn: credential has no attestationObject")
	}
	clientData, err := ParseClientData(c.Response.ClientDataJSON)
	if err != nil {
		return err
	}
	if err := clientData.Check(ClientDataCreate, options.Challenge); err != nil {
		return err
	}
	attestation, err := ParseAttestationObject(c.Response.AttestationObject)
	if err != nil {
		return err
	}
	if err := checkAuthenticatorData(attestation.AuthData, options.RP.ID, clientData.Origin); err != nil {
		return err
	}
	if !bytes.Equal(attestation.AuthData.Credential.CredentialID, c.RawID) {
		return errors.New("webauthn: attested credential id does not match rawId")
	}
	return nil
}

// Validate checks an assertion against the options it answers.
func (c *AssertionCredential) Validate(options *RequestOptions) error {
	if err := checkIdentity(c.ID, c.RawID, c.Type); err != nil {
		return err
	}
	if len(c.Response.AuthenticatorData) == 0 || len(c.Response.Signature) == 0 {
		return errors.New("webauthn: assertion is missing authenticatorData or signature")
	}
	if len(options.AllowCredentials) > 0 {
		allowed := false
		for _, descriptor := range options.AllowCredentials {
			if bytes.Equal(descriptor.ID, c.RawID) {
				allowed = true
				break
			}
		}
		if !allowed {
			return errors.New("webauthn: assertion used a credential outside allowCredentials")
		}
	}
	clientData, err := ParseClientData(c.Response.ClientDataJSON)
	if err != nil {
		return err
	}
	if err := clientData.Check(ClientDataGet, options.Challenge); err != nil {
		return err
	}
	authData, err := ParseAuthenticatorData(c.Response.AuthenticatorData)
	if err != nil {
		return err
	}
	return checkAuthenticatorData(authData, options.RPID, clientData.Origin)
}

// checkAuthenticatorData requires user presence and an rpIdHash for
// rpID, which defaults to the host of origin as in browsers.
func checkAuthenticatorData(data *AuthenticatorData, rpID, origin string) error {
	if rpID == "" {
		parsed, err := url.Parse(origin)
		if err != nil || parsed.Hostname() == "" {
			return fmt.Errorf("webauthn: client data origin %q has no host", origin)
		}
		rpID = parsed.Hostname()
	}
	if data.RPIDHash != sha256.Sum256([]byte(rpID)) {
		return fmt.Errorf("webauthn: authenticator data is not for relying party %q", rpID)
	}
	if !data.Has(FlagUserPresent) {
		return errors.New("webauthn: authenticator did not report user presence")
	}
	return nil
}

func checkIdentity(id string, rawID []byte, credentialType string) error {
	if credentialType != PublicKeyType {
		return fmt.Errorf("webauthn: credential type %q, want %q", credentialType, PublicKeyType)
	}
	if len(rawID) == 0 {
		return errors.New("webauthn: credential has no rawId")
	}
	if id != Encode(rawID) {
		return errors.New("webauthn: credential id does not match rawId")
	}
	return nil
}
