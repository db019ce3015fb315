// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"errors"
	"net/http"

	"github.com/belfast-foundation/belfast-console/lib/secret"
)

// Password buffers passed to these methods are read, never closed; the
// caller keeps ownership. Each is converted to a string only while the
// request body is encoded.

// BootstrapStatus reports whether the first admin can be created.
func (c *Client) BootstrapStatus(ctx context.Context) (*BootstrapStatus, error) {
	return get[BootstrapStatus](ctx, c, "/auth/bootstrap/status")
}

// Bootstrap creates the first admin account and signs it in.
func (c *Client) Bootstrap(ctx context.Context, username string, password *secret.Buffer) (*LoginResponse, error) {
	if username == "" || password == nil {
		return nil, errors.New("console: username and password are required")
	}
	return send[LoginResponse](ctx, c, http.MethodPost, "/auth/bootstrap",
		credentialsRequest{Username: username, Password: password.String()})
}

// Login signs an admin in with a password.
func (c *Client) Login(ctx context.Context, username string, password *secret.Buffer) (*LoginResponse, error) {
	if username == "" || password == nil {
		return nil, errors.New("console: username and password are required")
	}
	response, err := send[LoginResponse](ctx, c, http.MethodPost, "/auth/login",
		credentialsRequest{Username: username, Password: password.String()})
	if err != nil {
		return nil, err
	}
	c.logger.Info("admin signed in", "username", response.User.Username, "session_expires", response.Session.ExpiresAt)
	return response, nil
}

// Logout ends the admin session on the server.
func (c *Client) Logout(ctx context.Context) error {
	return do(ctx, c, http.MethodPost, "/auth/logout", nil)
}

// Session returns the current admin session and its CSRF token.
func (c *Client) Session(ctx context.Context) (*SessionResponse, error) {
	return get[SessionResponse](ctx, c, "/auth/session")
}

// ChangePassword changes the signed-in admin's password.
func (c *Client) ChangePassword(ctx context.Context, current, next *secret.Buffer) error {
	if current == nil || next == nil {
		return errors.New("console: current and new password are required")
	}
	return do(ctx, c, http.MethodPost, "/auth/password/change", passwordChangeRequest{
		CurrentPassword: current.String(),
		NewPassword:     next.String(),
	})
}

// PlayerLogin signs a player in by commander id.
func (c *Client) PlayerLogin(ctx context.Context, commanderID int64, password *secret.Buffer) (*PlayerLoginResponse, error) {
	if password == nil {
		return nil, errors.New("console: password is required")
	}
	return send[PlayerLoginResponse](ctx, c, http.MethodPost, "/user/auth/login",
		playerLoginRequest{CommanderID: commanderID, Password: password.String()})
}

// MePermissions returns the effective policy of the current principal.
func (c *Client) MePermissions(ctx context.Context) (*MePermissions, error) {
	return get[MePermissions](ctx, c, "/me/permissions")
}

// MeCommander returns the commander linked to the current principal.
func (c *Client) MeCommander(ctx context.Context) (*MeCommander, error) {
	return get[MeCommander](ctx, c, "/me/commander")
}
