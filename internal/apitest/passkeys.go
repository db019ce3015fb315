// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package apitest

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"net/http"
	"time"

	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/webauthn"
)

type passkeyRecord struct {
	summary   console.PasskeySummary
	id        []byte
	publicKey *ecdsa.PublicKey
	signCount uint32
}

// cose EC2 parameters.
const (
	coseX = -2
	coseY = -3
)

func newChallenge() []byte {
	challenge := make([]byte, 32)
	rand.Read(challenge)
	return challenge
}

// PasskeyCount reports how many passkeys an operator has.
func (s *Server) PasskeyCount(username string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if admin := s.admins[username]; admin != nil {
		return len(admin.passkeys)
	}
	return 0
}

func (s *Server) handlePasskeyList(writer http.ResponseWriter, request *http.Request) {
	record := s.requireAdmin(writer, request)
	if record == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	summaries := make([]console.PasskeySummary, 0, len(record.admin.passkeys))
	for _, passkey := range record.admin.passkeys {
		summaries = append(summaries, passkey.summary)
	}
	writeData(writer, console.PasskeyList{Passkeys: summaries})
}

func (s *Server) handlePasskeyDelete(writer http.ResponseWriter, request *http.Request) {
	record := s.requireAdmin(writer, request)
	if record == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := request.PathValue("id")
	kept := record.admin.passkeys[:0]
	found := false
	for _, passkey := range record.admin.passkeys {
		if passkey.summary.CredentialID == id {
			found = true
			continue
		}
		kept = append(kept, passkey)
	}
	record.admin.passkeys = kept
	if !found {
		writeError(writer, http.StatusNotFound, console.CodeNotFound, "Passkey not found")
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePasskeyRegisterOptions(writer http.ResponseWriter, request *http.Request) {
	record := s.requireAdmin(writer, request)
	if record == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge := newChallenge()
	s.registrationOptions[record.token] = challenge

	var exclude []webauthn.CredentialDescriptor
	for _, passkey := range record.admin.passkeys {
		exclude = append(exclude, webauthn.CredentialDescriptor{ID: passkey.id, Type: webauthn.PublicKeyType})
	}
	writeData(writer, map[string]any{"publicKey": webauthn.CreationOptions{
		Challenge: challenge,
		RP:        webauthn.RelyingParty{ID: s.rpID(), Name: "Belfast"},
		User: webauthn.User{
			ID:          []byte(record.admin.user.ID),
			Name:        record.admin.user.Username,
			DisplayName: record.admin.user.Username,
		},
		PubKeyCredParams:   []webauthn.CredentialParameter{{Type: webauthn.PublicKeyType, Alg: -7}},
		Timeout:            60000,
		Attestation:        "none",
		ExcludeCredentials: exclude,
	}})
}

func (s *Server) handlePasskeyRegisterVerify(writer http.ResponseWriter, request *http.Request) {
	record := s.requireAdmin(writer, request)
	if record == nil {
		return
	}
	var body struct {
		Credential webauthn.RegistrationCredential `json:"credential"`
		Label      string                          `json:"label"`
	}
	if !readJSON(writer, request, &body) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	challenge := s.registrationOptions[record.token]
	delete(s.registrationOptions, record.token)
	if challenge == nil {
		writeError(writer, http.StatusBadRequest, "passkey.no_ceremony", "No registration in progress")
		return
	}
	if !s.checkClientDataLocked(writer, body.Credential.Response.ClientDataJSON, webauthn.ClientDataCreate, challenge) {
		return
	}
	attestation, err := webauthn.ParseAttestationObject(body.Credential.Response.AttestationObject)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "passkey.invalid", err.Error())
		return
	}
	rpHash := sha256.Sum256([]byte(s.rpID()))
	if attestation.AuthData.RPIDHash != rpHash {
		writeError(writer, http.StatusBadRequest, "passkey.invalid", "RP id hash mismatch")
		return
	}
	credential := attestation.AuthData.Credential
	publicKey, ok := ecdsaKey(credential.PublicKey)
	if !ok {
		writeError(writer, http.StatusBadRequest, "passkey.invalid", "Unsupported public key")
		return
	}

	passkey := &passkeyRecord{
		summary: console.PasskeySummary{
			CredentialID:   webauthn.Encode(credential.CredentialID),
			Label:          body.Label,
			CreatedAt:      timestamp(time.Now()),
			AAGUID:         credential.AAGUIDString(),
			BackupEligible: attestation.AuthData.Has(webauthn.FlagBackupEligible),
			BackupState:    attestation.AuthData.Has(webauthn.FlagBackupState),
		},
		id:        credential.CredentialID,
		publicKey: publicKey,
		signCount: attestation.AuthData.SignCount,
	}
	record.admin.passkeys = append(record.admin.passkeys, passkey)
	writeData(writer, console.PasskeyRegistered{
		CredentialID: passkey.summary.CredentialID,
		Label:        passkey.summary.Label,
		CreatedAt:    passkey.summary.CreatedAt,
	})
}

func (s *Server) handlePasskeyAuthenticateOptions(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	if !readJSON(writer, request, &body) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	challenge := newChallenge()
	s.authenticationStarts[webauthn.Encode(challenge)] = body.Username

	var allow []webauthn.CredentialDescriptor
	if admin := s.admins[body.Username]; admin != nil {
		for _, passkey := range admin.passkeys {
			allow = append(allow, webauthn.CredentialDescriptor{ID: passkey.id, Type: webauthn.PublicKeyType})
		}
	}
	writeData(writer, map[string]any{"publicKey": webauthn.RequestOptions{
		Challenge:        challenge,
		Timeout:          60000,
		RPID:             s.rpID(),
		AllowCredentials: allow,
		UserVerification: "preferred",
	}})
}

func (s *Server) handlePasskeyAuthenticateVerify(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Credential webauthn.AssertionCredential `json:"credential"`
		Username   string                       `json:"username"`
	}
	if !readJSON(writer, request, &body) {
		return
	}
	response := body.Credential.Response

	s.mu.Lock()
	defer s.mu.Unlock()
	clientData, err := webauthn.ParseClientData(response.ClientDataJSON)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "passkey.invalid", err.Error())
		return
	}
	username, started := s.authenticationStarts[clientData.Challenge]
	delete(s.authenticationStarts, clientData.Challenge)
	if !started {
		writeError(writer, http.StatusBadRequest, "passkey.no_ceremony", "Unknown challenge")
		return
	}
	challenge, _ := webauthn.Decode(clientData.Challenge)
	if !s.checkClientDataLocked(writer, response.ClientDataJSON, webauthn.ClientDataGet, challenge) {
		return
	}

	var owner *adminRecord
	var passkey *passkeyRecord
	for _, admin := range s.admins {
		for _, candidate := range admin.passkeys {
			if bytes.Equal(candidate.id, body.Credential.RawID) {
				owner, passkey = admin, candidate
			}
		}
	}
	if passkey == nil || (username != "" && owner.user.Username != username) {
		writeError(writer, http.StatusUnauthorized, "auth.invalid_credentials", "Unknown passkey")
		return
	}

	authData, err := webauthn.ParseAuthenticatorData(response.AuthenticatorData)
	if err != nil {
		writeError(writer, http.StatusBadRequest, "passkey.invalid", err.Error())
		return
	}
	clientHash := sha256.Sum256(response.ClientDataJSON)
	digest := sha256.Sum256(append(append([]byte(nil), response.AuthenticatorData...), clientHash[:]...))
	if !ecdsa.VerifyASN1(passkey.publicKey, digest[:], response.Signature) {
		writeError(writer, http.StatusUnauthorized, "auth.invalid_credentials", "Signature verification failed")
		return
	}
	if authData.SignCount != 0 && authData.SignCount <= passkey.signCount {
		writeError(writer, http.StatusUnauthorized, "auth.invalid_credentials", "Sign count did not advance")
		return
	}
	passkey.signCount = authData.SignCount
	passkey.summary.LastUsedAt = timestamp(time.Now())

	record := s.startSessionLocked(writer, owner, nil)
	writeData(writer, console.LoginResponse{User: owner.user, Session: record.auth()})
}

func (s *Server) checkClientDataLocked(writer http.ResponseWriter, raw []byte, ceremony string, challenge []byte) bool {
	clientData, err := webauthn.ParseClientData(raw)
	if err == nil {
		err = clientData.Check(ceremony, challenge)
	}
	if err != nil {
		writeError(writer, http.StatusBadRequest, "passkey.invalid", err.Error())
		return false
	}
	if clientData.Origin != s.Origin() {
		writeError(writer, http.StatusBadRequest, "passkey.invalid", "Origin mismatch")
		return false
	}
	return true
}

func ecdsaKey(cose map[int]any) (*ecdsa.PublicKey, bool) {
	x, xOK := cose[coseX].([]byte)
	y, yOK := cose[coseY].([]byte)
	if !xOK || !yOK || len(x) != 32 || len(y) != 32 {
		return nil, false
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(x),
		Y:     new(big.Int).SetBytes(y),
	}, true
}
