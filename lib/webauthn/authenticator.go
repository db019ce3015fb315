// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package webauthn

import (
	"context"
	"errors"
)

var (
	// ErrCancelled means the user dismissed the ceremony or the
	// authenticator produced no credential.
	ErrCancelled = errors.New("webauthn: ceremony cancelled")

	// ErrUnsupported means no authenticator is available.
	ErrUnsupported = errors.New("webauthn: passkeys are not supported here")
)

// Authenticator performs WebAuthn ceremonies. Implementations return
// ErrCancelled when the user backs out.
type Authenticator interface {
	Create(ctx context.Context, options *CreationOptions) (*RegistrationCredential, error)
	Get(ctx context.Context, options *RequestOptions) (*AssertionCredential, error)
}

// Unsupported is an Authenticator that always fails with
// ErrUnsupported.
type Unsupported struct{}

func (Unsupported) Create(context.Context, *CreationOptions) (*RegistrationCredential, error) {
	return nil, ErrUnsupported
}

func (Unsupported) Get(context.Context, *RequestOptions) (*AssertionCredential, error) {
	return nil, ErrUnsupported
}
