// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/belfast-foundation/belfast-console/lib/secret"
)

// CreateRegistrationChallenge asks the server to deliver a PIN to the
// commander in-game.
func (c *Client) CreateRegistrationChallenge(ctx context.Context, commanderID int64, password *secret.Buffer) (*RegistrationChallenge, error) {
	if password == nil {
		return nil, errors.New("console: password is required")
	}
	return send[RegistrationChallenge](ctx, c, http.MethodPost, "/registration/challenges",
		registrationRequest{CommanderID: commanderID, Password: password.String()})
}

// RegistrationChallengeStatus reads a challenge's status.
func (c *Client) RegistrationChallengeStatus(ctx context.Context, challengeID string) (*RegistrationStatus, error) {
	return get[RegistrationStatus](ctx, c, "/registration/challenges/"+url.PathEscape(challengeID))
}

// VerifyRegistrationChallenge submits the PIN for a challenge.
func (c *Client) VerifyRegistrationChallenge(ctx context.Context, challengeID, pin string) (*RegistrationStatus, error) {
	return send[RegistrationStatus](ctx, c, http.MethodPost,
		"/registration/challenges/"+url.PathEscape(challengeID)+"/verify", verifyRequest{PIN: pin})
}
