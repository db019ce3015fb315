// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"net/http"
	"net/url"

	"github.com/belfast-foundation/belfast-console/lib/webauthn"
)

// Passkeys lists the signed-in admin's passkeys.
func (c *Client) Passkeys(ctx context.Context) (*PasskeyList, error) {
	return get[PasskeyList](ctx, c, "/auth/passkeys")
}

// DeletePasskey removes a passkey by credential id.
func (c *Client) DeletePasskey(ctx context.Context, credentialID string) error {
	return do(ctx, c, http.MethodDelete, "/auth/passkeys/"+url.PathEscape(credentialID), nil)
}

// PasskeyRegisterOptions starts a registration ceremony.
func (c *Client) PasskeyRegisterOptions(ctx context.Context, request PasskeyRegisterOptionsRequest) (*PasskeyOptions, error) {
	return send[PasskeyOptions](ctx, c, http.MethodPost, "/auth/passkeys/register/options", request)
}

// PasskeyRegisterVerify completes a registration ceremony.
func (c *Client) PasskeyRegisterVerify(ctx context.Context, credential *webauthn.RegistrationCredential, label string) (*PasskeyRegistered, error) {
	return send[PasskeyRegistered](ctx, c, http.MethodPost, "/auth/passkeys/register/verify", struct {
		Credential *webauthn.RegistrationCredential `json:"credential"`
		Label      string                           `json:"label,omitempty"`
	}{credential, label})
}

// PasskeyAuthenticateOptions starts a passkey sign-in. An empty
// username asks for discoverable credentials.
func (c *Client) PasskeyAuthenticateOptions(ctx context.Context, username string) (*PasskeyOptions, error) {
	return send[PasskeyOptions](ctx, c, http.MethodPost, "/auth/passkeys/authenticate/options", struct {
		Username string `json:"username,omitempty"`
	}{username})
}

// PasskeyAuthenticateVerify completes a passkey sign-in.
func (c *Client) PasskeyAuthenticateVerify(ctx context.Context, credential *webauthn.AssertionCredential, username string) (*LoginResponse, error) {
	return send[LoginResponse](ctx, c, http.MethodPost, "/auth/passkeys/authenticate/verify", struct {
		Credential *webauthn.AssertionCredential `json:"credential"`
		Username   string                        `json:"username,omitempty"`
	}{credential, username})
}
