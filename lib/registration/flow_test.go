// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package registration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
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

func testClock() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

// stubChallenges answers status and verify calls from fields the test
// changes between steps. When gate is set, status and verify calls
// announce themselves on arrived and wait for gate to close.
type stubChallenges struct {
	mu          sync.Mutex
	createErr   error
	status      console.ChallengeStatus
	statusErr   error
	verify      console.ChallengeStatus
	verifyErr   error
	verifiedPIN []string
	creates     int

	statusCalls chan struct{}
	arrived     chan struct{}
	gate        chan struct{}
}

func newStubChallenges() *stubChallenges {
	return &stubChallenges{
		status:      console.ChallengePending,
		verify:      console.ChallengeConsumed,
		statusCalls: make(chan struct{}, 16),
	}
}

func (s *stubChallenges) set(mutate func(*stubChallenges)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mutate(s)
}

func (s *stubChallenges) wait() {
	s.mu.Lock()
	arrived, gate := s.arrived, s.gate
	s.mu.Unlock()
	if arrived != nil {
		arrived <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
}

func (s *stubChallenges) CreateRegistrationChallenge(ctx context.Context, commanderID int64, password *secret.Buffer) (*console.RegistrationChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &console.RegistrationChallenge{ChallengeID: "challenge-1", ExpiresAt: "2026-03-01T12:05:00Z"}, nil
}

func (s *stubChallenges) RegistrationChallengeStatus(ctx context.Context, challengeID string) (*console.RegistrationStatus, error) {
	s.mu.Lock()
	status, err := s.status, s.statusErr
	s.mu.Unlock()
	s.statusCalls <- struct{}{}
	s.wait()
	if err != nil {
		return nil, err
	}
	return &console.RegistrationStatus{Status: status}, nil
}

func (s *stubChallenges) VerifyRegistrationChallenge(ctx context.Context, challengeID, pin string) (*console.RegistrationStatus, error) {
	s.mu.Lock()
	s.verifiedPIN = append(s.verifiedPIN, pin)
	status, err := s.verify, s.verifyErr
	s.mu.Unlock()
	s.wait()
	if err != nil {
		return nil, err
	}
	return &console.RegistrationStatus{Status: status}, nil
}

func (s *stubChallenges) pins() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.verifiedPIN...)
}

type stubSessions struct {
	mu       sync.Mutex
	logins   int
	err      error
	password string
	started  chan struct{}
	release  chan struct{}
}

func (s *stubSessions) PlayerLogin(ctx context.Context, commanderID int64, password *secret.Buffer) (session.PlayerSession, error) {
	s.mu.Lock()
	s.logins++
	s.password = password.String()
	err, started, release := s.err, s.started, s.release
	s.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if err != nil {
		return session.PlayerSession{}, err
	}
	return session.PlayerSession{User: console.UserAccount{ID: "user-1", CommanderID: commanderID}}, nil
}

func (s *stubSessions) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logins
}

func newStubFlow(t *testing.T, challenges *stubChallenges, sessions *stubSessions, fake *clock.FakeClock) *Flow {
	t.Helper()
	flow, err := New(Config{Challenges: challenges, Sessions: sessions, Clock: fake, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return flow
}

func startStub(t *testing.T, flow *Flow) {
	t.Helper()
	if err := flow.Start(context.Background(), 9001, password(t, "new-player-pass")); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"no challenges", Config{Sessions: &stubSessions{}}},
		{"no sessions", Config{Challenges: newStubChallenges()}},
		{"negative interval", Config{Challenges: newStubChallenges(), Sessions: &stubSessions{}, PollInterval: -time.Second}},
	}
	for _, test := range tests {
		if _, err := New(test.config); err == nil {
			t.Errorf("%s: New should fail", test.name)
		}
	}
}

func TestRegisterByPIN(t *testing.T) {
	server := apitest.New(t)
	server.AddCommander(apitest.Commander{ID: 9001, Name: "Kansen", Level: 12})
	server.EchoPIN(true)
	store, err := session.New(session.Config{Client: server.NewClient(t), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	flow, err := New(Config{Challenges: store.Client(), Sessions: store, Clock: testClock(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	var states []State
	defer flow.Subscribe(func(snapshot Snapshot) { states = append(states, snapshot.State) })()

	ctx := context.Background()
	secretPassword := password(t, "new-player-pass")
	if err := flow.Start(ctx, 9001, secretPassword); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// The flow keeps its own copy.
	secretPassword.Close()

	snapshot := flow.Snapshot()
	if snapshot.State != Pending || snapshot.CommanderID != 9001 || snapshot.ChallengeID == "" {
		t.Fatalf("after Start: %+v", snapshot)
	}
	pin := server.PIN(snapshot.ChallengeID)
	if "B-"+snapshot.EchoedPIN != pin {
		t.Errorf("EchoedPIN = %q, server PIN %q", snapshot.EchoedPIN, pin)
	}

	lowercase := "b-" + pin[2:]
	if err := flow.Verify(ctx, lowercase); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	snapshot = flow.Snapshot()
	if snapshot.State != SignedIn || snapshot.Player == nil || snapshot.Player.User.CommanderID != 9001 {
		t.Fatalf("after Verify: %+v", snapshot)
	}
	if !server.HasPlayer(9001) {
		t.Error("server did not create the account")
	}
	if player, ok := store.Principal().Player(); !ok || player.User.CommanderID != 9001 {
		t.Error("store does not hold the new player session")
	}
	if calls := server.Calls(http.MethodPost, "/user/auth/login"); len(calls) != 1 {
		t.Errorf("player login calls = %d, want 1", len(calls))
	}
	want := []State{Pending, Verifying, Finalizing, SignedIn}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("states = %v, want %v", states, want)
	}
}

func TestPollFinalizesWhenConfirmedInGame(t *testing.T) {
	challenges := newStubChallenges()
	sessions := &stubSessions{}
	fake := testClock()
	flow := newStubFlow(t, challenges, sessions, fake)
	startStub(t, flow)

	done := make(chan error, 1)
	go func() { done <- flow.Poll(context.Background()) }()

	testutil.RequireReceive(t, challenges.statusCalls, 5*time.Second, "waiting for the immediate check")
	fake.WaitForWaiters(1)
	fake.Advance(DefaultPollInterval)
	testutil.RequireReceive(t, challenges.statusCalls, 5*time.Second, "waiting for the first tick")

	challenges.set(func(s *stubChallenges) { s.status = console.ChallengeConsumed })
	fake.Advance(DefaultPollInterval)
	testutil.RequireReceive(t, challenges.statusCalls, 5*time.Second, "waiting for the second tick")

	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Poll"); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if state := flow.Snapshot().State; state != SignedIn {
		t.Errorf("state = %s, want signed_in", state)
	}
	if sessions.count() != 1 {
		t.Errorf("logins = %d, want 1", sessions.count())
	}
	if sessions.password != "new-player-pass" {
		t.Error("finalize did not use the registration password")
	}
	if fake.Pending() != 0 {
		t.Error("poll ticker still running")
	}
}

func TestPollStopsOnExpiry(t *testing.T) {
	challenges := newStubChallenges()
	challenges.status = console.ChallengeExpired
	sessions := &stubSessions{}
	fake := testClock()
	flow := newStubFlow(t, challenges, sessions, fake)
	startStub(t, flow)

	if err := flow.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	snapshot := flow.Snapshot()
	if snapshot.State != Expired || snapshot.Notice != NoticeChallengeExpired {
		t.Errorf("snapshot = %+v", snapshot)
	}
	if fake.Pending() != 0 {
		t.Error("poll ticker still running")
	}
	if sessions.count() != 0 {
		t.Error("expired challenge signed in")
	}
	if err := flow.Verify(context.Background(), "123456"); !errors.Is(err, ErrNoChallenge) {
		t.Errorf("Verify after expiry = %v, want ErrNoChallenge", err)
	}
}

func TestPollResetsWhenChallengeVanishes(t *testing.T) {
	server := apitest.New(t)
	server.AddCommander(apitest.Commander{ID: 9001})
	client := server.NewClient(t)
	flow, err := New(Config{Challenges: client, Sessions: &stubSessions{}, Clock: testClock(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := flow.Start(ctx, 9001, password(t, "new-player-pass")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	server.DeleteChallenge(flow.Snapshot().ChallengeID)

	if err := flow.Poll(ctx); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	snapshot := flow.Snapshot()
	if snapshot.State != Idle || snapshot.ChallengeID != "" || snapshot.Notice != NoticeStartOver {
		t.Errorf("snapshot = %+v", snapshot)
	}
}

func TestPollKeepsGoingAfterTransientFailure(t *testing.T) {
	challenges := newStubChallenges()
	challenges.statusErr = &console.APIError{Message: "Request failed", StatusCode: http.StatusBadGateway}
	fake := testClock()
	flow := newStubFlow(t, challenges, &stubSessions{}, fake)
	startStub(t, flow)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- flow.Poll(ctx) }()

	testutil.RequireReceive(t, challenges.statusCalls, 5*time.Second, "waiting for the immediate check")
	fake.WaitForWaiters(1)
	fake.Advance(DefaultPollInterval)
	testutil.RequireReceive(t, challenges.statusCalls, 5*time.Second, "waiting for the retry")
	if state := flow.Snapshot().State; state != Pending {
		t.Errorf("state = %s after a transient failure, want pending", state)
	}

	cancel()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Poll"); !errors.Is(err, context.Canceled) {
		t.Errorf("Poll = %v, want context.Canceled", err)
	}
}

func TestResetStopsPolling(t *testing.T) {
	challenges := newStubChallenges()
	fake := testClock()
	flow := newStubFlow(t, challenges, &stubSessions{}, fake)
	startStub(t, flow)

	done := make(chan error, 1)
	go func() { done <- flow.Poll(context.Background()) }()
	testutil.RequireReceive(t, challenges.statusCalls, 5*time.Second, "waiting for the immediate check")
	fake.WaitForWaiters(1)

	flow.Reset()
	fake.Advance(DefaultPollInterval)
	if err := testutil.RequireReceive(t, done, 5*time.Second, "waiting for Poll"); err != nil {
		t.Errorf("Poll = %v", err)
	}
	if snapshot := flow.Snapshot(); snapshot.State != Idle || snapshot.ChallengeID != "" {
		t.Errorf("snapshot after Reset = %+v", snapshot)
	}
}

func TestFinalizeRunsOnce(t *testing.T) {
	// A poll and a PIN verification both see the consumed challenge
	// at the same moment.
	challenges := newStubChallenges()
	challenges.status = console.ChallengeConsumed
	challenges.verify = console.ChallengeConsumed
	sessions := &stubSessions{}
	flow := newStubFlow(t, challenges, sessions, testClock())
	startStub(t, flow)

	arrived := make(chan struct{}, 2)
	gate := make(chan struct{})
	challenges.set(func(s *stubChallenges) { s.arrived, s.gate = arrived, gate })

	ctx := context.Background()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		flow.CheckStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		flow.Verify(ctx, "123456")
	}()
	testutil.RequireReceive(t, arrived, 5*time.Second, "waiting for the first response")
	testutil.RequireReceive(t, arrived, 5*time.Second, "waiting for the second response")
	close(gate)
	wg.Wait()

	if sessions.count() != 1 {
		t.Errorf("PlayerLogin called %d times, want 1", sessions.count())
	}
	if state := flow.Snapshot().State; state != SignedIn {
		t.Errorf("state = %s, want signed_in", state)
	}
}

func TestFinalizeOnceAgainstServer(t *testing.T) {
	server := apitest.New(t)
	server.AddCommander(apitest.Commander{ID: 9001})
	store, err := session.New(session.Config{Client: server.NewClient(t), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	flow, err := New(Config{Challenges: store.Client(), Sessions: store, Clock: testClock(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := flow.Start(ctx, 9001, password(t, "new-player-pass")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	challengeID := flow.Snapshot().ChallengeID
	release := server.Block(http.MethodPost, "/user/auth/login")

	server.ConfirmInGame(challengeID)
	checked := make(chan error, 1)
	go func() {
		_, err := flow.CheckStatus(ctx)
		checked <- err
	}()
	deadline := time.Now().Add(5 * time.Second)
	for len(server.Calls(http.MethodPost, "/user/auth/login")) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("finalize never reached the server")
		}
		time.Sleep(time.Millisecond)
	}

	// The PIN arrives while the login is still in flight.
	if err := flow.Verify(ctx, server.PIN(challengeID)); !errors.Is(err, ErrNoChallenge) {
		t.Errorf("Verify during finalize = %v, want ErrNoChallenge", err)
	}
	if status, err := flow.CheckStatus(ctx); err != nil || status != console.ChallengeConsumed {
		t.Errorf("CheckStatus during finalize = %s, %v", status, err)
	}

	release()
	if err := testutil.RequireReceive(t, checked, 5*time.Second, "waiting for finalize"); err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if calls := server.Calls(http.MethodPost, "/user/auth/login"); len(calls) != 1 {
		t.Errorf("player login calls = %d, want 1", len(calls))
	}
	if !store.IsPlayerAuthenticated() {
		t.Error("player not signed in")
	}
}

func TestFinalizeFailure(t *testing.T) {
	challenges := newStubChallenges()
	challenges.status = console.ChallengeConsumed
	sessions := &stubSessions{err: &console.APIError{Message: "Account disabled", StatusCode: http.StatusForbidden}}
	flow := newStubFlow(t, challenges, sessions, testClock())
	startStub(t, flow)

	if _, err := flow.CheckStatus(context.Background()); err == nil {
		t.Fatal("CheckStatus should report the failed sign-in")
	}
	snapshot := flow.Snapshot()
	if snapshot.State != FinalizeFailed || snapshot.Notice != "Sign in failed: Account disabled" {
		t.Errorf("snapshot = %+v", snapshot)
	}
	// Finalize is not retried on later polls.
	if _, err := flow.CheckStatus(context.Background()); err != nil {
		t.Errorf("CheckStatus after failure = %v", err)
	}
	if sessions.count() != 1 {
		t.Errorf("logins = %d, want 1", sessions.count())
	}
}

func TestResetDuringFinalizeDropsResult(t *testing.T) {
	challenges := newStubChallenges()
	challenges.status = console.ChallengeConsumed
	sessions := &stubSessions{started: make(chan struct{}, 1), release: make(chan struct{})}
	flow := newStubFlow(t, challenges, sessions, testClock())
	startStub(t, flow)

	done := make(chan error, 1)
	go func() {
		_, err := flow.CheckStatus(context.Background())
		done <- err
	}()
	testutil.RequireReceive(t, sessions.started, 5*time.Second, "waiting for the login")
	flow.Reset()
	close(sessions.release)
	testutil.RequireReceive(t, done, 5*time.Second, "waiting for CheckStatus")

	if snapshot := flow.Snapshot(); snapshot.State != Idle || snapshot.Player != nil {
		t.Errorf("snapshot = %+v, want idle", snapshot)
	}
}

func TestStartValidation(t *testing.T) {
	challenges := newStubChallenges()
	flow := newStubFlow(t, challenges, &stubSessions{}, testClock())
	ctx := context.Background()

	tests := []struct {
		name        string
		commanderID int64
		password    *secret.Buffer
		wantErr     error
		wantNotice  string
	}{
		{"zero commander", 0, password(t, "pass"), ErrInvalidCommanderID, NoticeInvalidCommanderID},
		{"negative commander", -4, password(t, "pass"), ErrInvalidCommanderID, NoticeInvalidCommanderID},
		{"no password", 9001, nil, ErrPasswordRequired, NoticePasswordRequired},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := flow.Start(ctx, test.commanderID, test.password)
			var flowErr *Error
			if !errors.Is(err, test.wantErr) || !errors.As(err, &flowErr) || flowErr.Notice != test.wantNotice {
				t.Errorf("Start = %v, want %q", err, test.wantNotice)
			}
			if notice := flow.Snapshot().Notice; notice != test.wantNotice {
				t.Errorf("Notice = %q", notice)
			}
		})
	}
	if challenges.creates != 0 {
		t.Errorf("invalid input reached the server %d times", challenges.creates)
	}
}

func TestStartRejectedByServer(t *testing.T) {
	server := apitest.New(t)
	server.AddPlayer(9001, "existing")
	server.AddCommander(apitest.Commander{ID: 9002})
	client := server.NewClient(t)
	flow, err := New(Config{Challenges: client, Sessions: &stubSessions{}, Clock: testClock(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		name        string
		commanderID int64
		wantNotice  string
	}{
		{"account exists", 9001, NoticeAccountExists},
		{"unknown commander", 4242, "Commander not found"},
	}
	for _, test := range tests {
		err := flow.Start(ctx, test.commanderID, password(t, "new-player-pass"))
		var flowErr *Error
		if !errors.As(err, &flowErr) || flowErr.Notice != test.wantNotice {
			t.Errorf("%s: Start = %v, want %q", test.name, err, test.wantNotice)
		}
		if state := flow.Snapshot().State; state != Idle {
			t.Errorf("%s: state = %s, want idle", test.name, state)
		}
	}

	// A second challenge for the same commander collides with the first.
	if err := flow.Start(ctx, 9002, password(t, "new-player-pass")); err != nil {
		t.Fatalf("Start: %v", err)
	}
	other, err := New(Config{Challenges: client, Sessions: &stubSessions{}, Clock: testClock(), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = other.Start(ctx, 9002, password(t, "new-player-pass"))
	var flowErr *Error
	if !errors.As(err, &flowErr) || flowErr.Notice != NoticeChallengeExists {
		t.Errorf("second Start = %v, want %q", err, NoticeChallengeExists)
	}
}

func TestVerifyRejectsMalformedPIN(t *testing.T) {
	challenges := newStubChallenges()
	challenges.verify = console.ChallengePending
	flow := newStubFlow(t, challenges, &stubSessions{}, testClock())
	ctx := context.Background()

	if err := flow.Verify(ctx, "123456"); !errors.Is(err, ErrNoChallenge) {
		t.Errorf("Verify without a challenge = %v", err)
	}
	startStub(t, flow)

	for _, pin := range []string{"12345", "B-12345A", "1234567", "C-123456", "B123456"} {
		err := flow.Verify(ctx, pin)
		if !errors.Is(err, ErrInvalidPIN) {
			t.Errorf("Verify(%q) = %v, want ErrInvalidPIN", pin, err)
		}
		if notice := flow.Snapshot().Notice; notice != NoticePINFormat {
			t.Errorf("Verify(%q) notice = %q", pin, notice)
		}
	}
	if err := flow.Verify(ctx, "   "); err == nil || err.Error() != NoticePINRequired {
		t.Errorf("Verify(blank) = %v", err)
	}
	if pins := challenges.pins(); len(pins) != 0 {
		t.Fatalf("malformed PINs reached the server: %v", pins)
	}

	for _, pin := range []string{"123456", " b-123456 "} {
		if err := flow.Verify(ctx, pin); err != nil {
			t.Errorf("Verify(%q): %v", pin, err)
		}
	}
	if pins := challenges.pins(); !reflect.DeepEqual(pins, []string{"123456", "B-123456"}) {
		t.Errorf("submitted PINs = %v", pins)
	}
	if state := flow.Snapshot().State; state != Pending {
		t.Errorf("state = %s, want pending", state)
	}
}

func TestVerifyFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantState  State
		wantNotice string
	}{
		{
			name:       "wrong pin",
			err:        &console.APIError{Code: console.CodeChallengeInvalid, Message: "Invalid PIN", StatusCode: http.StatusBadRequest},
			wantState:  Pending,
			wantNotice: NoticeInvalidPIN,
		},
		{
			name:       "expired",
			err:        &console.APIError{Code: console.CodeChallengeExpired, Message: "expired", StatusCode: http.StatusGone},
			wantState:  Expired,
			wantNotice: NoticePINExpired,
		},
		{
			name:       "consumed",
			err:        &console.APIError{Code: console.CodeChallengeConsumed, Message: "consumed", StatusCode: http.StatusConflict},
			wantState:  Pending,
			wantNotice: NoticeChallengeUsed,
		},
		{
			name:       "unknown",
			err:        &console.APIError{Code: "internal", Message: "database offline", StatusCode: http.StatusInternalServerError},
			wantState:  Pending,
			wantNotice: "database offline",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			challenges := newStubChallenges()
			challenges.verifyErr = test.err
			flow := newStubFlow(t, challenges, &stubSessions{}, testClock())
			startStub(t, flow)

			err := flow.Verify(context.Background(), "123456")
			if !errors.Is(err, test.err) {
				t.Errorf("Verify = %v, want it to wrap %v", err, test.err)
			}
			snapshot := flow.Snapshot()
			if snapshot.State != test.wantState || snapshot.Notice != test.wantNotice {
				t.Errorf("snapshot = %s %q, want %s %q", snapshot.State, snapshot.Notice, test.wantState, test.wantNotice)
			}
		})
	}
}

func TestErrorRetryable(t *testing.T) {
	retryable := noticeError("x", &console.APIError{StatusCode: http.StatusServiceUnavailable})
	if !retryable.Retryable() {
		t.Error("503 should be retryable")
	}
	if noticeError(NoticeInvalidPIN, ErrInvalidPIN).Retryable() {
		t.Error("a malformed PIN is not retryable")
	}
}
