// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package webauthn

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"github.com/belfast-foundation/belfast-console/lib/netutil"
)

// DefaultCeremonyTimeout applies when the server's options carry no
// timeout.
const DefaultCeremonyTimeout = 2 * time.Minute

// CommandAuthenticator runs an external helper for each ceremony.
//
// The helper reads one JSON request on stdin:
//
//	{"ceremony": "create", "origin": "https://game.example.net", "publicKey": {...}}
//
// and writes one JSON reply on stdout:
//
//	{"status": "ok", "credential": {...}}
//	{"status": "cancelled"}
//	{"status": "error", "message": "..."}
//
// publicKey and credential use the admin API's base64url JSON forms.
type CommandAuthenticator struct {
	// Argv is the helper program and its arguments.
	Argv []string

	// Origin is the web origin the ceremony claims, normally the
	// scheme and host of the API base URL.
	Origin string

	Logger *slog.Logger
}

type helperRequest struct {
	Ceremony  string `json:"ceremony"`
	Origin    string `json:"origin"`
	PublicKey any    `json:"publicKey"`
}

type helperReply struct {
	Status     string          `json:"status"`
	Message    string          `json:"message,omitempty"`
	Credential json.RawMessage `json:"credential,omitempty"`
}

func (a *CommandAuthenticator) Create(ctx context.Context, options *CreationOptions) (*RegistrationCredential, error) {
	raw, err := a.run(ctx, "create", options, options.CeremonyTimeout(DefaultCeremonyTimeout))
	if err != nil {
		return nil, err
	}
	var credential RegistrationCredential
	if err := json.Unmarshal(raw, &credential); err != nil {
		return nil, fmt.Errorf("webauthn: helper returned malformed credential: %w", err)
	}
	if err := credential.Validate(options); err != nil {
		return nil, err
	}
	return &credential, nil
}

func (a *CommandAuthenticator) Get(ctx context.Context, options *RequestOptions) (*AssertionCredential, error) {
	raw, err := a.run(ctx, "get", options, options.CeremonyTimeout(DefaultCeremonyTimeout))
	if err != nil {
		return nil, err
	}
	var credential AssertionCredential
	if err := json.Unmarshal(raw, &credential); err != nil {
		return nil, fmt.Errorf("webauthn: helper returned malformed assertion: %w", err)
	}
	if err := credential.Validate(options); err != nil {
		return nil, err
	}
	return &credential, nil
}

func (a *CommandAuthenticator) run(ctx context.Context, ceremony string, publicKey any, timeout time.Duration) (json.RawMessage, error) {
	if len(a.Argv) == 0 {
		return nil, ErrUnsupported
	}
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}

	input, err := json.Marshal(helperRequest{Ceremony: ceremony, Origin: a.Origin, PublicKey: publicKey})
	if err != nil {
		return nil, fmt.Errorf("webauthn: encoding helper request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, a.Argv[0], a.Argv[1:]...)
	command.Stdin = bytes.NewReader(input)
	command.Stdout = &stdout
	command.Stderr = &stderr

	logger.Debug("running passkey helper", "helper", a.Argv[0], "ceremony", ceremony, "timeout", timeout)
	if err := command.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("webauthn: %s ceremony: %w", ceremony, ctx.Err())
		}
		return nil, fmt.Errorf("webauthn: helper %s: %w (stderr: %s)",
			a.Argv[0], err, strings.TrimSpace(stderr.String()))
	}

	var reply helperReply
	if err := netutil.DecodeResponse(&stdout, &reply); err != nil {
		return nil, fmt.Errorf("webauthn: helper %s wrote invalid output: %w", a.Argv[0], err)
	}
	switch reply.Status {
	case "ok":
		if len(reply.Credential) == 0 || string(reply.Credential) == "null" {
			return nil, ErrCancelled
		}
		return reply.Credential, nil
	case "cancelled":
		return nil, ErrCancelled
	case "error":
		if reply.Message == "" {
			reply.Message = "unspecified failure"
		}
		return nil, errors.New("webauthn: helper: " + reply.Message)
	default:
		return nil, fmt.Errorf("webauthn: helper returned unknown status %q", reply.Status)
	}
}
