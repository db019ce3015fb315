// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/internal/apitest"
	"github.com/belfast-foundation/belfast-console/lib/secret"
	"github.com/belfast-foundation/belfast-console/lib/webauthn"
	"github.com/belfast-foundation/belfast-console/lib/webauthn/webauthntest"
)

func testBuffer(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromString(value)
	if err != nil {
		t.Fatalf("creating test buffer: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

// transitionLog records every published transition.
type transitionLog struct {
	mu          sync.Mutex
	transitions []Transition
}

func (l *transitionLog) record(t Transition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transitions = append(l.transitions, t)
}

func (l *transitionLog) kinds() []Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	kinds := make([]Kind, len(l.transitions))
	for i, t := range l.transitions {
		kinds[i] = t.Current.Kind()
	}
	return kinds
}

func newTestStore(t *testing.T, server *apitest.Server, authenticator webauthn.Authenticator) (*Store, *transitionLog) {
	t.Helper()
	store, err := New(Config{
		Client:        server.NewClient(t),
		Authenticator: authenticator,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log := &transitionLog{}
	store.Subscribe(log.record)
	return store, log
}

func equalKinds(got, want []Kind) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New without a client should fail")
	}
}

func TestLoginLoadsSessionAndCSRFToken(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	store, log := newTestStore(t, server, nil)
	ctx := context.Background()

	if err := store.Login(ctx, "ops", testBuffer(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}

	principal := store.Principal()
	if principal.Kind() != Admin {
		t.Fatalf("Kind = %v, want admin", principal.Kind())
	}
	admin, ok := principal.Admin()
	if !ok || admin.User.Username != "ops" {
		t.Fatalf("Admin() = %+v, %v", admin, ok)
	}
	if admin.CSRFToken == "" || store.Client().CSRFToken() != admin.CSRFToken {
		t.Errorf("CSRF token: session %q, client %q", admin.CSRFToken, store.Client().CSRFToken())
	}
	if calls := server.Calls(http.MethodGet, "/auth/session"); len(calls) != 1 {
		t.Errorf("session fetched %d times, want 1", len(calls))
	}
	if got := log.kinds(); !equalKinds(got, []Kind{Admin}) {
		t.Errorf("transitions = %v, want [admin]", got)
	}
}

func TestRejectedLoginLeavesStoreUnchanged(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	store, log := newTestStore(t, server, nil)

	err := store.Login(context.Background(), "ops", testBuffer(t, "wrong"))
	if !console.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("Login error = %v, want 401", err)
	}
	if store.IsAuthenticated() {
		t.Error("store is authenticated after a rejected login")
	}
	if calls := server.Calls(http.MethodGet, "/auth/session"); len(calls) != 0 {
		t.Errorf("session fetched %d times after rejected login", len(calls))
	}
	if got := log.kinds(); len(got) != 0 {
		t.Errorf("transitions = %v, want none", got)
	}
}

func TestRefreshSessionWithoutCookieIsAnonymous(t *testing.T) {
	server := apitest.New(t)
	store, log := newTestStore(t, server, nil)

	if err := store.RefreshSession(context.Background()); err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	if store.IsAuthenticated() {
		t.Error("anonymous refresh authenticated the store")
	}
	if got := log.kinds(); len(got) != 0 {
		t.Errorf("transitions = %v, want none", got)
	}
}

func TestRefreshSessionFailureClearsAdmin(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	store, log := newTestStore(t, server, nil)
	ctx := context.Background()
	if err := store.Login(ctx, "ops", testBuffer(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}

	server.Fail(http.MethodGet, "/auth/session", apitest.Failure{Status: http.StatusInternalServerError, Message: "boom", Times: 1})
	err := store.RefreshSession(ctx)
	if !console.IsStatus(err, http.StatusInternalServerError) {
		t.Fatalf("RefreshSession error = %v, want 500", err)
	}
	if store.IsAdminAuthenticated() {
		t.Error("admin session survived a failed refresh")
	}
	if token := store.Client().CSRFToken(); token != "" {
		t.Errorf("CSRF token = %q after failed refresh, want empty", token)
	}
	if got := log.kinds(); !equalKinds(got, []Kind{Admin, None}) {
		t.Errorf("transitions = %v, want [admin none]", got)
	}
}

func TestRepeatedRefreshPublishesNothing(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	store, log := newTestStore(t, server, nil)
	ctx := context.Background()
	if err := store.Login(ctx, "ops", testBuffer(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}
	for range 3 {
		if err := store.RefreshSession(ctx); err != nil {
			t.Fatalf("RefreshSession: %v", err)
		}
	}
	if got := log.kinds(); !equalKinds(got, []Kind{Admin}) {
		t.Errorf("transitions = %v, want [admin]", got)
	}
}

func TestBootstrap(t *testing.T) {
	server := apitest.New(t)
	store, _ := newTestStore(t, server, nil)
	ctx := context.Background()

	status, err := store.BootstrapStatus(ctx)
	if err != nil {
		t.Fatalf("BootstrapStatus: %v", err)
	}
	if !status.CanBootstrap || status.AdminCount != 0 {
		t.Fatalf("status = %+v, want bootstrap open", status)
	}
	if err := store.Bootstrap(ctx, "first", testBuffer(t, "correct horse")); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if !store.IsAdminAuthenticated() {
		t.Fatal("bootstrap did not sign the operator in")
	}

	status, err = store.BootstrapStatus(ctx)
	if err != nil {
		t.Fatalf("BootstrapStatus: %v", err)
	}
	if status.CanBootstrap {
		t.Error("bootstrap still open after the first operator was created")
	}
	if err := store.Bootstrap(ctx, "second", testBuffer(t, "x")); !console.IsStatus(err, http.StatusConflict) {
		t.Errorf("second Bootstrap error = %v, want 409", err)
	}
}

func TestLogout(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	store, log := newTestStore(t, server, nil)
	ctx := context.Background()
	if err := store.Login(ctx, "ops", testBuffer(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if store.IsAuthenticated() {
		t.Error("store authenticated after logout")
	}
	if token := store.Client().CSRFToken(); token != "" {
		t.Errorf("CSRF token = %q after logout", token)
	}
	calls := server.Calls(http.MethodPost, "/auth/logout")
	if len(calls) != 1 || calls[0].CSRF == "" {
		t.Errorf("logout calls = %+v, want one carrying a CSRF token", calls)
	}
	if got := log.kinds(); !equalKinds(got, []Kind{Admin, None}) {
		t.Errorf("transitions = %v, want [admin none]", got)
	}

	// A refresh after logout must not resurrect the session.
	if err := store.RefreshSession(ctx); err != nil {
		t.Fatalf("RefreshSession: %v", err)
	}
	if store.IsAuthenticated() {
		t.Error("session cookie survived logout")
	}
}

func TestLogoutWithoutSessionSendsNothing(t *testing.T) {
	server := apitest.New(t)
	store, _ := newTestStore(t, server, nil)
	if err := store.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if calls := server.Calls(http.MethodPost, "/auth/logout"); len(calls) != 0 {
		t.Errorf("logout sent %d requests without a session", len(calls))
	}
}

func TestFailedLogoutKeepsSession(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	store, _ := newTestStore(t, server, nil)
	ctx := context.Background()
	if err := store.Login(ctx, "ops", testBuffer(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}
	token := store.Client().CSRFToken()

	server.Fail(http.MethodPost, "/auth/logout", apitest.Failure{Status: http.StatusServiceUnavailable, Message: "down", Times: 1})
	if err := store.Logout(ctx); !console.IsStatus(err, http.StatusServiceUnavailable) {
		t.Fatalf("Logout error = %v, want 503", err)
	}
	if !store.IsAdminAuthenticated() {
		t.Error("failed logout dropped the admin session")
	}
	if got := store.Client().CSRFToken(); got != token {
		t.Errorf("CSRF token changed from %q to %q", token, got)
	}
}

func TestAdminLogoutKeepsPlayerSession(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	server.AddPlayer(1001, "player-pass")
	store, log := newTestStore(t, server, nil)
	ctx := context.Background()

	if err := store.Login(ctx, "ops", testBuffer(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}
	player, err := store.PlayerLogin(ctx, 1001, testBuffer(t, "player-pass"))
	if err != nil {
		t.Fatalf("PlayerLogin: %v", err)
	}
	if player.User.CommanderID != 1001 {
		t.Errorf("player commander = %d, want 1001", player.User.CommanderID)
	}
	if store.Principal().Kind() != Both {
		t.Fatalf("Kind = %v, want both", store.Principal().Kind())
	}

	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if store.Principal().Kind() != Player {
		t.Errorf("Kind after admin logout = %v, want player", store.Principal().Kind())
	}
	if got := log.kinds(); !equalKinds(got, []Kind{Admin, Both, Player}) {
		t.Errorf("transitions = %v, want [admin both player]", got)
	}

	store.PlayerLogout()
	if store.IsAuthenticated() {
		t.Error("store authenticated after player logout")
	}
}

func TestPlayerLoginValidatesCommanderID(t *testing.T) {
	server := apitest.New(t)
	store, _ := newTestStore(t, server, nil)
	for _, id := range []int64{0, -5} {
		if _, err := store.PlayerLogin(context.Background(), id, testBuffer(t, "x")); !errors.Is(err, ErrInvalidCommanderID) {
			t.Errorf("PlayerLogin(%d) error = %v, want ErrInvalidCommanderID", id, err)
		}
	}
	if calls := server.Calls(http.MethodPost, "/user/auth/login"); len(calls) != 0 {
		t.Errorf("invalid commander ids reached the server %d times", len(calls))
	}
}

func TestRejectedPlayerLogin(t *testing.T) {
	server := apitest.New(t)
	server.AddPlayer(1001, "player-pass")
	store, _ := newTestStore(t, server, nil)
	_, err := store.PlayerLogin(context.Background(), 1001, testBuffer(t, "nope"))
	if !console.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("PlayerLogin error = %v, want 401", err)
	}
	if store.IsPlayerAuthenticated() {
		t.Error("rejected player login authenticated the store")
	}
}

func TestUnauthorizedResponseExpiresSessions(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	store, log := newTestStore(t, server, nil)
	ctx := context.Background()
	if err := store.Login(ctx, "ops", testBuffer(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}

	server.ExpireSessions()
	if _, err := store.Client().Roles(ctx); !console.IsStatus(err, http.StatusUnauthorized) {
		t.Fatalf("Roles error = %v, want 401", err)
	}
	if store.IsAuthenticated() {
		t.Error("store still authenticated after a 401")
	}
	if token := store.Client().CSRFToken(); token != "" {
		t.Errorf("CSRF token = %q after expiry", token)
	}
	if got := log.kinds(); !equalKinds(got, []Kind{Admin, None}) {
		t.Errorf("transitions = %v, want [admin none]", got)
	}
}

func TestAdminOperationsRequireSession(t *testing.T) {
	server := apitest.New(t)
	store, _ := newTestStore(t, server, nil)
	ctx := context.Background()

	if err := store.ChangePassword(ctx, testBuffer(t, "a"), testBuffer(t, "b")); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("ChangePassword error = %v", err)
	}
	if _, err := store.Passkeys(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Passkeys error = %v", err)
	}
	if _, err := store.RegisterPasskey(ctx, "laptop"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("RegisterPasskey error = %v", err)
	}
	if err := store.DeletePasskey(ctx, "abc"); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("DeletePasskey error = %v", err)
	}
	if _, err := store.Commander(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Errorf("Commander error = %v", err)
	}
	if calls := server.Calls("", ""); len(calls) != 0 {
		t.Errorf("unauthenticated operations sent %d requests", len(calls))
	}
}

func TestChangePassword(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	store, _ := newTestStore(t, server, nil)
	ctx := context.Background()
	if err := store.Login(ctx, "ops", testBuffer(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := store.ChangePassword(ctx, testBuffer(t, "hunter2"), testBuffer(t, "hunter3")); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := store.Login(ctx, "ops", testBuffer(t, "hunter3")); err != nil {
		t.Errorf("Login with new password: %v", err)
	}
}

func TestPasskeyRegistrationAndSignIn(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	authenticator := webauthntest.New(server.Origin())
	store, _ := newTestStore(t, server, authenticator)
	ctx := context.Background()
	if err := store.Login(ctx, "ops", testBuffer(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}

	registered, err := store.RegisterPasskey(ctx, "laptop")
	if err != nil {
		t.Fatalf("RegisterPasskey: %v", err)
	}
	if registered.Label != "laptop" || registered.CredentialID == "" {
		t.Errorf("registered = %+v", registered)
	}
	passkeys, err := store.Passkeys(ctx)
	if err != nil {
		t.Fatalf("Passkeys: %v", err)
	}
	if len(passkeys) != 1 || passkeys[0].CredentialID != registered.CredentialID {
		t.Fatalf("passkeys = %+v", passkeys)
	}

	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if err := store.PasskeyLogin(ctx, "ops"); err != nil {
		t.Fatalf("PasskeyLogin: %v", err)
	}
	admin, ok := store.Principal().Admin()
	if !ok || admin.User.Username != "ops" {
		t.Fatalf("Admin() after passkey sign-in = %+v, %v", admin, ok)
	}

	if err := store.DeletePasskey(ctx, registered.CredentialID); err != nil {
		t.Fatalf("DeletePasskey: %v", err)
	}
	if count := server.PasskeyCount("ops"); count != 0 {
		t.Errorf("PasskeyCount = %d after delete", count)
	}
}

func TestPasskeySignInWithDiscoverableCredential(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	authenticator := webauthntest.New(server.Origin())
	store, _ := newTestStore(t, server, authenticator)
	ctx := context.Background()
	if err := store.Login(ctx, "ops", testBuffer(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := store.RegisterPasskey(ctx, "key"); err != nil {
		t.Fatalf("RegisterPasskey: %v", err)
	}
	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}

	if err := store.PasskeyLogin(ctx, ""); err != nil {
		t.Fatalf("PasskeyLogin without username: %v", err)
	}
	if !store.IsAdminAuthenticated() {
		t.Error("discoverable sign-in did not authenticate")
	}
}

func TestCancelledPasskeySignIn(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	authenticator := webauthntest.New(server.Origin())
	authenticator.SetCancel(true)
	store, log := newTestStore(t, server, authenticator)

	err := store.PasskeyLogin(context.Background(), "ops")
	if !errors.Is(err, webauthn.ErrCancelled) {
		t.Fatalf("PasskeyLogin error = %v, want ErrCancelled", err)
	}
	if calls := server.Calls(http.MethodPost, "/auth/passkeys/authenticate/verify"); len(calls) != 0 {
		t.Errorf("cancelled ceremony still verified %d times", len(calls))
	}
	if got := log.kinds(); len(got) != 0 {
		t.Errorf("transitions = %v, want none", got)
	}
}

func TestPasskeyWithoutAuthenticatorIsUnsupported(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	store, _ := newTestStore(t, server, nil)
	if err := store.PasskeyLogin(context.Background(), "ops"); !errors.Is(err, webauthn.ErrUnsupported) {
		t.Errorf("PasskeyLogin error = %v, want ErrUnsupported", err)
	}
}

func TestCommanderCachedPerPrincipal(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	server.AddCommander(apitest.Commander{ID: 7, Name: "Belfast", Level: 120})
	server.LinkCommander("ops", 7)
	server.AddPlayer(1001, "player-pass")
	store, _ := newTestStore(t, server, nil)
	ctx := context.Background()
	if err := store.Login(ctx, "ops", testBuffer(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}

	for range 2 {
		commander, err := store.Commander(ctx)
		if err != nil {
			t.Fatalf("Commander: %v", err)
		}
		if commander.CommanderID != 7 || commander.Name != "Belfast" {
			t.Errorf("commander = %+v", commander)
		}
	}
	if calls := server.Calls(http.MethodGet, "/me/commander"); len(calls) != 1 {
		t.Errorf("commander fetched %d times, want 1", len(calls))
	}

	self, err := store.SelfCommanderID(ctx)
	if err != nil || self != 7 {
		t.Errorf("SelfCommanderID = %d, %v; want 7", self, err)
	}

	if _, err := store.PlayerLogin(ctx, 1001, testBuffer(t, "player-pass")); err != nil {
		t.Fatalf("PlayerLogin: %v", err)
	}
	self, err = store.SelfCommanderID(ctx)
	if err != nil || self != 1001 {
		t.Errorf("SelfCommanderID with player session = %d, %v; want 1001", self, err)
	}
	if _, err := store.Commander(ctx); err != nil {
		t.Fatalf("Commander: %v", err)
	}
	if calls := server.Calls(http.MethodGet, "/me/commander"); len(calls) != 2 {
		t.Errorf("commander fetched %d times after principal change, want 2", len(calls))
	}
}

func TestSubscriberMayCallBackIntoStore(t *testing.T) {
	server := apitest.New(t)
	server.AddAdmin("ops", "hunter2")
	store, _ := newTestStore(t, server, nil)
	ctx := context.Background()

	var seen []bool
	unsubscribe := store.Subscribe(func(transition Transition) {
		seen = append(seen, store.IsAdminAuthenticated())
		if transition.Current.Kind() == Admin {
			store.PlayerLogout()
		}
	})
	if err := store.Login(ctx, "ops", testBuffer(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if len(seen) != 1 || !seen[0] {
		t.Errorf("subscriber saw %v, want [true]", seen)
	}

	unsubscribe()
	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(seen) != 1 {
		t.Errorf("unsubscribed callback ran: %v", seen)
	}
}

func TestPrincipalIdentity(t *testing.T) {
	admin := &AdminSession{Session: console.AuthSession{ID: "s1"}}
	player := &PlayerSession{Session: console.AuthSession{ID: "s2"}}
	tests := []struct {
		name      string
		principal Principal
		kind      Kind
		identity  string
	}{
		{"none", newPrincipal(nil, nil), None, "none"},
		{"admin", newPrincipal(admin, nil), Admin, "admin:admin=s1"},
		{"player", newPrincipal(nil, player), Player, "player:player=s2"},
		{"both", newPrincipal(admin, player), Both, "both:admin=s1:player=s2"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.principal.Kind(); got != test.kind {
				t.Errorf("Kind = %v, want %v", got, test.kind)
			}
			if got := test.principal.Identity(); got != test.identity {
				t.Errorf("Identity = %q, want %q", got, test.identity)
			}
		})
	}

	copied := newPrincipal(admin, nil)
	admin.Session.ID = "mutated"
	if got, _ := copied.Admin(); got.Session.ID != "s1" {
		t.Error("principal shares memory with its source session")
	}
	if (Transition{Previous: copied, Current: newPrincipal(&AdminSession{Session: console.AuthSession{ID: "s1"}}, nil)}).Changed() {
		t.Error("equal identities reported as a change")
	}
}
