// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/secret"
	"github.com/belfast-foundation/belfast-console/lib/webauthn"
)

var (
	// ErrNotAuthenticated means the operation needs a session the
	// store does not hold.
	ErrNotAuthenticated = errors.New("session: not signed in")

	// ErrInvalidCommanderID rejects a non-positive commander id before
	// any request is sent.
	ErrInvalidCommanderID = errors.New("session: commander id must be greater than 0")
)

// Config holds configuration for creating a Store.
type Config struct {
	// Client is the API client the store drives. Required. The store
	// installs itself as the client's unauthorized hook.
	Client *console.Client

	// Authenticator performs passkey ceremonies. Defaults to
	// webauthn.Unsupported.
	Authenticator webauthn.Authenticator

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Store owns the admin and player sessions of one console process.
// Read accessors return copies; state only changes through the named
// methods. Safe for concurrent use.
type Store struct {
	client        *console.Client
	authenticator webauthn.Authenticator
	logger        *slog.Logger

	mu        sync.RWMutex
	admin     *AdminSession
	player    *PlayerSession
	commander *console.MeCommander

	notifyMu    sync.Mutex
	subscribers map[int]func(Transition)
	nextID      int
	pending     []Transition
	draining    bool
}

// New creates a Store with no sessions.
func New(config Config) (*Store, error) {
	if config.Client == nil {
		return nil, errors.New("session: Client is required")
	}
	store := &Store{
		client:        config.Client,
		authenticator: config.Authenticator,
		logger:        config.Logger,
		subscribers:   make(map[int]func(Transition)),
	}
	if store.authenticator == nil {
		store.authenticator = webauthn.Unsupported{}
	}
	if store.logger == nil {
		store.logger = slog.Default()
	}
	config.Client.OnUnauthorized(store.expire)
	return store, nil
}

// Client returns the API client the store drives.
func (s *Store) Client() *console.Client { return s.client }

// Principal returns the current principal.
func (s *Store) Principal() Principal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newPrincipal(s.admin, s.player)
}

// IsAuthenticated reports whether either session is held.
func (s *Store) IsAuthenticated() bool { return s.Principal().Authenticated() }

// IsAdminAuthenticated reports whether an operator session is held.
func (s *Store) IsAdminAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admin != nil
}

// IsPlayerAuthenticated reports whether a player session is held.
func (s *Store) IsPlayerAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.player != nil
}

// Subscribe registers fn to receive every transition that changes the
// principal. Transitions are delivered in order, one at a time, never
// while the store's lock is held; fn may call back into the store.
// The returned function unsubscribes.
func (s *Store) Subscribe(fn func(Transition)) (unsubscribe func()) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.notifyMu.Lock()
		defer s.notifyMu.Unlock()
		delete(s.subscribers, id)
	}
}

// publish delivers t to every subscriber. A publish that happens while
// another is being delivered, from a subscriber or another goroutine,
// is queued and delivered by the goroutine already draining.
func (s *Store) publish(t Transition) {
	if !t.Changed() {
		return
	}
	s.notifyMu.Lock()
	s.pending = append(s.pending, t)
	if s.draining {
		s.notifyMu.Unlock()
		return
	}
	s.draining = true
	for len(s.pending) > 0 {
		next := s.pending[0]
		s.pending = s.pending[1:]
		subscribers := make([]func(Transition), 0, len(s.subscribers))
		for _, fn := range s.subscribers {
			subscribers = append(subscribers, fn)
		}
		s.notifyMu.Unlock()
		for _, fn := range subscribers {
			fn(next)
		}
		s.notifyMu.Lock()
	}
	s.draining = false
	s.notifyMu.Unlock()
}

// update applies mutate under the lock and publishes the resulting
// transition.
func (s *Store) update(mutate func()) {
	s.mu.Lock()
	previous := newPrincipal(s.admin, s.player)
	mutate()
	current := newPrincipal(s.admin, s.player)
	s.mu.Unlock()
	s.publish(Transition{Previous: previous, Current: current})
}

// RefreshSession re-reads the admin session from the server. On
// success the session and CSRF token are installed. On any failure
// the admin session and CSRF token are cleared; a 401 is the normal
// "not signed in" answer and returns nil.
func (s *Store) RefreshSession(ctx context.Context) error {
	response, err := s.client.Session(ctx)
	if err != nil {
		s.client.SetCSRFToken("")
		s.update(func() {
			s.admin = nil
			s.commander = nil
		})
		if console.IsStatus(err, http.StatusUnauthorized) {
			return nil
		}
		s.logger.Warn("session refresh failed", "error", err)
		return err
	}

	token := response.CSRFToken
	if token != "" {
		s.client.SetCSRFToken(token)
	} else {
		token = s.client.CSRFToken()
	}
	s.update(func() {
		s.admin = &AdminSession{User: response.User, Session: response.Session, CSRFToken: token}
	})
	return nil
}

// Login signs an operator in and loads the resulting session. A
// rejected login leaves the store unchanged.
func (s *Store) Login(ctx context.Context, username string, password *secret.Buffer) error {
	if _, err := s.client.Login(ctx, username, password); err != nil {
		return err
	}
	return s.RefreshSession(ctx)
}

// BootstrapStatus reports whether the first operator can be created.
func (s *Store) BootstrapStatus(ctx context.Context) (*console.BootstrapStatus, error) {
	return s.client.BootstrapStatus(ctx)
}

// Bootstrap creates the first operator and loads the resulting
// session. The server refuses once an operator exists.
func (s *Store) Bootstrap(ctx context.Context, username string, password *secret.Buffer) error {
	response, err := s.client.Bootstrap(ctx, username, password)
	if err != nil {
		return err
	}
	s.logger.Info("first admin created", "username", response.User.Username)
	return s.RefreshSession(ctx)
}

// PasskeyLogin signs an operator in with a passkey. An empty username
// lets the authenticator offer discoverable credentials.
func (s *Store) PasskeyLogin(ctx context.Context, username string) error {
	response, err := s.client.PasskeyAuthenticateOptions(ctx, username)
	if err != nil {
		return err
	}
	options, err := webauthn.ParseRequestOptions(response.PublicKey)
	if err != nil {
		return err
	}
	credential, err := s.authenticator.Get(ctx, options)
	if err != nil {
		return fmt.Errorf("passkey sign-in: %w", err)
	}
	if credential == nil {
		return fmt.Errorf("passkey sign-in: %w", webauthn.ErrCancelled)
	}
	if err := credential.Validate(options); err != nil {
		return err
	}
	if _, err := s.client.PasskeyAuthenticateVerify(ctx, credential, username); err != nil {
		return err
	}
	return s.RefreshSession(ctx)
}

// Logout ends the operator session. The player session, if any, is
// kept. A failed server call leaves the store unchanged, except that a
// 401 means the session was already gone and is cleared locally.
func (s *Store) Logout(ctx context.Context) error {
	if !s.IsAdminAuthenticated() {
		return nil
	}
	if err := s.client.Logout(ctx); err != nil && !console.IsStatus(err, http.StatusUnauthorized) {
		return err
	}
	s.client.SetCSRFToken("")
	s.update(func() {
		s.admin = nil
		s.commander = nil
	})
	s.logger.Info("admin signed out")
	return nil
}

// PlayerLogin signs a player in. The player session lives only in
// this store and is never persisted.
func (s *Store) PlayerLogin(ctx context.Context, commanderID int64, password *secret.Buffer) (PlayerSession, error) {
	if commanderID <= 0 {
		return PlayerSession{}, ErrInvalidCommanderID
	}
	response, err := s.client.PlayerLogin(ctx, commanderID, password)
	if err != nil {
		return PlayerSession{}, err
	}
	player := PlayerSession{User: response.User, Session: response.Session}
	s.update(func() {
		s.player = &player
		s.commander = nil
	})
	s.logger.Info("player signed in", "commander_id", response.User.CommanderID)
	return player, nil
}

// PlayerLogout forgets the player session locally.
func (s *Store) PlayerLogout() {
	s.update(func() {
		s.player = nil
		s.commander = nil
	})
}

// expire is the client's unauthorized hook: a held session was
// rejected, so every local session is dropped.
func (s *Store) expire(path string) {
	if !s.IsAuthenticated() {
		return
	}
	s.logger.Warn("session expired", "path", path)
	s.client.SetCSRFToken("")
	s.update(func() {
		s.admin = nil
		s.player = nil
		s.commander = nil
	})
}

// ChangePassword changes the signed-in operator's password.
func (s *Store) ChangePassword(ctx context.Context, current, next *secret.Buffer) error {
	if !s.IsAdminAuthenticated() {
		return ErrNotAuthenticated
	}
	return s.client.ChangePassword(ctx, current, next)
}

// Passkeys lists the signed-in operator's passkeys.
func (s *Store) Passkeys(ctx context.Context) ([]console.PasskeySummary, error) {
	if !s.IsAdminAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	response, err := s.client.Passkeys(ctx)
	if err != nil {
		return nil, err
	}
	return response.Passkeys, nil
}

// RegisterPasskey runs a registration ceremony for the signed-in
// operator and stores the resulting passkey under label.
func (s *Store) RegisterPasskey(ctx context.Context, label string) (*console.PasskeyRegistered, error) {
	if !s.IsAdminAuthenticated() {
		return nil, ErrNotAuthenticated
	}
	response, err := s.client.PasskeyRegisterOptions(ctx, console.PasskeyRegisterOptionsRequest{Label: label})
	if err != nil {
		return nil, err
	}
	options, err := webauthn.ParseCreationOptions(response.PublicKey)
	if err != nil {
		return nil, err
	}
	credential, err := s.authenticator.Create(ctx, options)
	if err != nil {
		return nil, fmt.Errorf("passkey registration: %w", err)
	}
	if credential == nil {
		return nil, fmt.Errorf("passkey registration: %w", webauthn.ErrCancelled)
	}
	if err := credential.Validate(options); err != nil {
		return nil, err
	}
	registered, err := s.client.PasskeyRegisterVerify(ctx, credential, label)
	if err != nil {
		return nil, err
	}
	attrs := []any{"credential_id", registered.CredentialID}
	if attestation, err := webauthn.ParseAttestationObject(credential.Response.AttestationObject); err == nil {
		attrs = append(attrs,
			"format", attestation.Format,
			"aaguid", attestation.AuthData.Credential.AAGUIDString(),
			"backup_eligible", attestation.AuthData.Has(webauthn.FlagBackupEligible),
		)
	}
	s.logger.Info("passkey registered", attrs...)
	return registered, nil
}

// DeletePasskey removes one of the signed-in operator's passkeys.
func (s *Store) DeletePasskey(ctx context.Context, credentialID string) error {
	if !s.IsAdminAuthenticated() {
		return ErrNotAuthenticated
	}
	return s.client.DeletePasskey(ctx, credentialID)
}

// Commander returns the commander linked to the current principal,
// fetching it once per principal.
func (s *Store) Commander(ctx context.Context) (*console.MeCommander, error) {
	s.mu.RLock()
	authenticated := s.admin != nil || s.player != nil
	cached := s.commander
	identity := newPrincipal(s.admin, s.player).Identity()
	s.mu.RUnlock()
	if !authenticated {
		return nil, ErrNotAuthenticated
	}
	if cached != nil {
		copied := *cached
		return &copied, nil
	}

	commander, err := s.client.MeCommander(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if newPrincipal(s.admin, s.player).Identity() == identity {
		copied := *commander
		s.commander = &copied
	}
	s.mu.Unlock()
	return commander, nil
}

// SelfCommanderID is the commander the principal acts as for "self"
// permissions: the player session's commander when one is held,
// otherwise the commander linked to the operator account.
func (s *Store) SelfCommanderID(ctx context.Context) (int64, error) {
	if player, ok := s.Principal().Player(); ok {
		return player.User.CommanderID, nil
	}
	commander, err := s.Commander(ctx)
	if err != nil {
		return 0, err
	}
	return commander.CommanderID, nil
}
