// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package webauthntest provides a software authenticator for tests.
// It produces ES256 credentials with "none" attestation and signs real
// assertions, so everything the console parses or forwards has the
// shape a hardware key would produce.
package webauthntest

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/url"
	"sync"

	"github.com/belfast-foundation/belfast-console/lib/codec"
	"github.com/belfast-foundation/belfast-console/lib/webauthn"
)

// Authenticator is an in-memory platform authenticator. Safe for
// concurrent use.
type Authenticator struct {
	origin string

	mu          sync.Mutex
	credentials []*credential
	cancel      bool
	creates     int
	gets        int
}

type credential struct {
	id         []byte
	rpID       string
	userHandle []byte
	key        *ecdsa.PrivateKey
	signCount  uint32
}

// New returns an authenticator that reports origin in client data.
func New(origin string) *Authenticator {
	return &Authenticator{origin: origin}
}

// SetCancel makes subsequent ceremonies fail with
// webauthn.ErrCancelled, as if the user dismissed the prompt.
func (a *Authenticator) SetCancel(cancel bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cancel = cancel
}

// Calls reports how many Create and Get ceremonies were attempted.
func (a *Authenticator) Calls() (creates, gets int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.creates, a.gets
}

// CredentialIDs lists the ids of every credential created so far.
func (a *Authenticator) CredentialIDs() [][]byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	ids := make([][]byte, len(a.credentials))
	for i, c := range a.credentials {
		ids[i] = c.id
	}
	return ids
}

func (a *Authenticator) Create(ctx context.Context, options *webauthn.CreationOptions) (*webauthn.RegistrationCredential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.creates++
	if a.cancel {
		return nil, webauthn.ErrCancelled
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, excluded := range options.ExcludeCredentials {
		if a.findLocked(excluded.ID) != nil {
			return nil, errors.New("webauthntest: authenticator already holds an excluded credential")
		}
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	id := make([]byte, 16)
	if _, err := rand.Read(id); err != nil {
		return nil, err
	}
	created := &credential{
		id:         id,
		rpID:       a.rpID(options.RP.ID),
		userHandle: append([]byte(nil), options.User.ID...),
		key:        key,
	}

	publicKey, err := coseKey(key)
	if err != nil {
		return nil, err
	}
	authData := authenticatorData(created.rpID,
		webauthn.FlagUserPresent|webauthn.FlagUserVerified|webauthn.FlagAttestedCredentialData, 0)
	authData = append(authData, make([]byte, 16)...) // zero AAGUID
	authData = binary.BigEndian.AppendUint16(authData, uint16(len(id)))
	authData = append(authData, id...)
	authData = append(authData, publicKey...)

	attestation, err := codec.Marshal(map[string]any{
		"fmt":      "none",
		"attStmt":  map[string]any{},
		"authData": authData,
	})
	if err != nil {
		return nil, err
	}
	clientData, err := a.clientData(webauthn.ClientDataCreate, options.Challenge)
	if err != nil {
		return nil, err
	}

	a.credentials = append(a.credentials, created)
	return &webauthn.RegistrationCredential{
		ID:    webauthn.Encode(id),
		RawID: id,
		Type:  webauthn.PublicKeyType,
		Response: webauthn.AttestationResponse{
			ClientDataJSON:    clientData,
			AttestationObject: attestation,
		},
	}, nil
}

func (a *Authenticator) Get(ctx context.Context, options *webauthn.RequestOptions) (*webauthn.AssertionCredential, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gets++
	if a.cancel {
		return nil, webauthn.ErrCancelled
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var chosen *credential
	if len(options.AllowCredentials) > 0 {
		for _, allowed := range options.AllowCredentials {
			if chosen = a.findLocked(allowed.ID); chosen != nil {
				break
			}
		}
	} else {
		rpID := a.rpID(options.RPID)
		for _, c := range a.credentials {
			if c.rpID == rpID {
				chosen = c
				break
			}
		}
	}
	if chosen == nil {
		return nil, webauthn.ErrCancelled
	}

	chosen.signCount++
	authData := authenticatorData(chosen.rpID, webauthn.FlagUserPresent|webauthn.FlagUserVerified, chosen.signCount)
	clientData, err := a.clientData(webauthn.ClientDataGet, options.Challenge)
	if err != nil {
		return nil, err
	}
	clientHash := sha256.Sum256(clientData)
	digest := sha256.Sum256(append(append([]byte(nil), authData...), clientHash[:]...))
	signature, err := ecdsa.SignASN1(rand.Reader, chosen.key, digest[:])
	if err != nil {
		return nil, err
	}

	return &webauthn.AssertionCredential{
		ID:    webauthn.Encode(chosen.id),
		RawID: chosen.id,
		Type:  webauthn.PublicKeyType,
		Response: webauthn.AssertionResponse{
			ClientDataJSON:    clientData,
			AuthenticatorData: authData,
			Signature:         signature,
			UserHandle:        chosen.userHandle,
		},
	}, nil
}

func (a *Authenticator) findLocked(id []byte) *credential {
	for _, c := range a.credentials {
		if string(c.id) == string(id) {
			return c
		}
	}
	return nil
}

func (a *Authenticator) rpID(requested string) string {
	if requested != "" {
		return requested
	}
	parsed, err := url.Parse(a.origin)
	if err != nil {
		return a.origin
	}
	return parsed.Hostname()
}

func (a *Authenticator) clientData(ceremony string, challenge []byte) ([]byte, error) {
	return json.Marshal(webauthn.ClientData{
		Type:      ceremony,
		Challenge: webauthn.Encode(challenge),
		Origin:    a.origin,
	})
}

func authenticatorData(rpID string, flags byte, signCount uint32) []byte {
	rpHash := sha256.Sum256([]byte(rpID))
	data := append([]byte(nil), rpHash[:]...)
	data = append(data, flags)
	return binary.BigEndian.AppendUint32(data, signCount)
}

// coseKey encodes an EC2 P-256 public key for ES256 (RFC 9053).
func coseKey(key *ecdsa.PrivateKey) ([]byte, error) {
	public, err := key.PublicKey.ECDH()
	if err != nil {
		return nil, err
	}
	point := public.Bytes() // 0x04 || X || Y
	return codec.Marshal(map[int]any{
		1:  2,  // kty: EC2
		3:  -7, // alg: ES256
		-1: 1,  // crv: P-256
		-2: point[1:33],
		-3: point[33:65],
	})
}
