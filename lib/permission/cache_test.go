// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/internal/apitest"
	"github.com/belfast-foundation/belfast-console/lib/clock"
	"github.com/belfast-foundation/belfast-console/lib/secret"
	"github.com/belfast-foundation/belfast-console/lib/session"
	"github.com/belfast-foundation/belfast-console/lib/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func password(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromString(value)
	if err != nil {
		t.Fatalf("creating password buffer: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

// stubSource answers from a fixed table, optionally holding each call
// until release is closed.
type stubSource struct {
	mu       sync.Mutex
	response *console.MePermissions
	err      error
	calls    int
	started  chan struct{}
	release  chan struct{}
}

func (s *stubSource) MePermissions(ctx context.Context) (*console.MePermissions, error) {
	s.mu.Lock()
	s.calls++
	response, err, started, release := s.response, s.err, s.started, s.release
	s.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	return response, err
}

func newTestCache(t *testing.T, source Source) *Cache {
	t.Helper()
	cache, err := New(Config{
		Source: source,
		Clock:  clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cache
}

func TestNewRequiresSource(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New without a source should fail")
	}
}

func TestCacheRefresh(t *testing.T) {
	source := &stubSource{response: table(console.PermissionEntry{Key: "players", ReadSelf: true})}
	cache := newTestCache(t, source)

	if cache.Can("players", ReadSelf) {
		t.Fatal("empty cache granted a permission")
	}
	snapshot, err := cache.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if snapshot != cache.Snapshot() {
		t.Error("Refresh returned a different snapshot than it installed")
	}
	if !cache.Can("players", ReadSelf) || cache.Can("players", ReadAny) {
		t.Error("cache does not reflect the fetched table")
	}
	if !snapshot.FetchedAt().Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("FetchedAt = %v, want the clock's time", snapshot.FetchedAt())
	}

	cache.Clear()
	if cache.Snapshot() != nil || cache.Can("players", ReadSelf) {
		t.Error("Clear left a table behind")
	}
}

func TestCacheFailedRefreshDeniesEverything(t *testing.T) {
	source := &stubSource{response: table(console.PermissionEntry{Key: "players", ReadAny: true})}
	cache := newTestCache(t, source)
	ctx := context.Background()
	if _, err := cache.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	fetchErr := &console.APIError{Message: "Request failed", StatusCode: http.StatusBadGateway}
	source.mu.Lock()
	source.err = fetchErr
	source.mu.Unlock()

	if _, err := cache.Refresh(ctx); !errors.Is(err, fetchErr) {
		t.Fatalf("Refresh error = %v, want %v", err, fetchErr)
	}
	if cache.Can("players", ReadAny) {
		t.Error("stale table survived a failed refresh")
	}
	if err := cache.Require("players", ReadAny); !errors.Is(err, fetchErr) {
		t.Errorf("Require = %v, want the fetch error", err)
	}
	if !errors.Is(cache.Err(), fetchErr) {
		t.Errorf("Err = %v", cache.Err())
	}
	if source.calls != 2 {
		t.Errorf("source called %d times; a failed fetch must not be retried", source.calls)
	}
}

func TestCacheRequireWithoutTableIsDenial(t *testing.T) {
	cache := newTestCache(t, &stubSource{})
	var denied *DeniedError
	if err := cache.Require("server", ReadAny); !errors.As(err, &denied) {
		t.Errorf("Require = %v, want *DeniedError", err)
	}
}

func TestCacheDiscardsFetchAbandonedByClear(t *testing.T) {
	source := &stubSource{
		response: table(console.PermissionEntry{Key: "players", ReadAny: true}),
		started:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
	cache := newTestCache(t, source)

	done := make(chan *Snapshot, 1)
	go func() {
		snapshot, _ := cache.Refresh(context.Background())
		done <- snapshot
	}()
	testutil.RequireReceive(t, source.started, 5*time.Second, "waiting for the fetch to start")
	cache.Clear()
	close(source.release)

	if snapshot := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Refresh"); snapshot != nil {
		t.Error("Refresh returned the abandoned table")
	}
	if cache.Can("players", ReadAny) {
		t.Error("abandoned fetch was installed after Clear")
	}
}

func TestCacheFollowsSessionStore(t *testing.T) {
	server := apitest.New(t)
	server.AddRole("viewer", []console.PermissionEntry{{Key: "players", ReadAny: true}})
	server.AddAdmin("ops", "hunter2", "viewer")
	server.AddPlayer(1001, "player-pass")
	server.SetPlayerPolicy([]console.PermissionEntry{{Key: "players", ReadSelf: true}})

	store, err := session.New(session.Config{Client: server.NewClient(t), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	cache := newTestCache(t, store.Client())
	ctx := context.Background()
	stop := cache.Follow(ctx, store)
	defer stop()

	fetches := func() int { return len(server.Calls(http.MethodGet, "/me/permissions")) }
	if cache.Snapshot() != nil || fetches() != 0 {
		t.Fatal("cache fetched for an anonymous principal")
	}

	if err := store.Login(ctx, "ops", password(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !cache.Can("players", ReadAny) {
		t.Fatal("operator permissions not loaded after login")
	}
	if fetches() != 1 {
		t.Errorf("fetches after login = %d, want 1", fetches())
	}

	if _, err := store.PlayerLogin(ctx, 1001, password(t, "player-pass")); err != nil {
		t.Fatalf("PlayerLogin: %v", err)
	}
	if fetches() != 2 {
		t.Errorf("fetches after player login = %d, want 2", fetches())
	}

	// The operator leaves; the player session remains and its own,
	// narrower table replaces the operator's.
	if err := store.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if fetches() != 3 {
		t.Errorf("fetches after admin logout = %d, want 3", fetches())
	}
	if cache.Can("players", ReadAny) || !cache.Can("players", ReadSelf) {
		t.Errorf("after admin logout the table should be the player policy, got %v", cache.Snapshot().Keys())
	}

	store.PlayerLogout()
	if cache.Snapshot() != nil {
		t.Error("table survived sign-out")
	}
	if fetches() != 3 {
		t.Errorf("sign-out triggered a fetch")
	}
}

func TestFollowLoadsForExistingPrincipal(t *testing.T) {
	server := apitest.New(t)
	server.AddRole("viewer", []console.PermissionEntry{{Key: "server", ReadAny: true}})
	server.AddAdmin("ops", "hunter2", "viewer")
	store, err := session.New(session.Config{Client: server.NewClient(t), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	ctx := context.Background()
	if err := store.Login(ctx, "ops", password(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}

	cache := newTestCache(t, store.Client())
	stop := cache.Follow(ctx, store)
	defer stop()
	if !cache.Can("server", ReadAny) {
		t.Error("Follow did not load for an already signed-in principal")
	}
}

func TestAdminReloadsAfterEdit(t *testing.T) {
	server := apitest.New(t)
	store, err := session.New(session.Config{Client: server.NewClient(t), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	cache := newTestCache(t, store.Client())
	ctx := context.Background()
	defer cache.Follow(ctx, store)()

	if err := store.Bootstrap(ctx, "owner", password(t, "first-password")); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if !cache.Can("players", WriteAny) {
		t.Fatal("bootstrap owner lacks players write")
	}

	admin := NewAdmin(store.Client(), cache)
	_, err = admin.ReplaceRolePolicy(ctx, apitest.OwnerRole, []console.PermissionEntry{
		{Key: AuthzKey, ReadAny: true, WriteAny: true},
		{Key: "players", ReadAny: true},
	})
	if err != nil {
		t.Fatalf("ReplaceRolePolicy: %v", err)
	}
	if cache.Can("players", WriteAny) {
		t.Error("cache still grants a permission the edit removed")
	}
	if !cache.Can("players", ReadAny) {
		t.Error("cache lost a permission the edit kept")
	}
}

func TestAdminRequiresAuthzWrite(t *testing.T) {
	server := apitest.New(t)
	server.AddRole("viewer", []console.PermissionEntry{{Key: AuthzKey, ReadAny: true}})
	server.AddAdmin("ops", "hunter2", "viewer")
	store, err := session.New(session.Config{Client: server.NewClient(t), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	cache := newTestCache(t, store.Client())
	ctx := context.Background()
	defer cache.Follow(ctx, store)()
	if err := store.Login(ctx, "ops", password(t, "hunter2")); err != nil {
		t.Fatalf("Login: %v", err)
	}

	admin := NewAdmin(store.Client(), cache)
	_, err = admin.UpdatePlayerPolicy(ctx, []console.PermissionEntry{{Key: "players", ReadAny: true}})
	var denied *DeniedError
	if !errors.As(err, &denied) || denied.Key != AuthzKey || denied.Op != WriteAny {
		t.Fatalf("UpdatePlayerPolicy error = %v, want admin.authz write_any denial", err)
	}
	if calls := server.Calls(http.MethodPatch, "/admin/permission-policy"); len(calls) != 0 {
		t.Errorf("denied edit still reached the server %d times", len(calls))
	}
}
