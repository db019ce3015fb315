// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/clock"
	"github.com/belfast-foundation/belfast-console/lib/secret"
	"github.com/belfast-foundation/belfast-console/lib/session"
)

// DefaultPollInterval is how often a pending challenge is re-checked.
const DefaultPollInterval = 3 * time.Second

// State is where a Flow is in the registration lifecycle.
type State string

const (
	Idle           State = "idle"
	Pending        State = "pending"
	Verifying      State = "verifying"
	Finalizing     State = "finalizing"
	SignedIn       State = "signed_in"
	FinalizeFailed State = "finalize_failed"
	Expired        State = "expired"
)

// Active reports whether the state holds a challenge that can still be
// verified or polled.
func (s State) Active() bool { return s == Pending || s == Verifying }

// Terminal reports whether the state can only be left by Reset or a
// new Start.
func (s State) Terminal() bool {
	return s == SignedIn || s == FinalizeFailed || s == Expired
}

// Challenges is the registration half of the API. *console.Client
// satisfies it.
type Challenges interface {
	CreateRegistrationChallenge(ctx context.Context, commanderID int64, password *secret.Buffer) (*console.RegistrationChallenge, error)
	RegistrationChallengeStatus(ctx context.Context, challengeID string) (*console.RegistrationStatus, error)
	VerifyRegistrationChallenge(ctx context.Context, challengeID, pin string) (*console.RegistrationStatus, error)
}

// PlayerSessions signs a player in once the account exists.
// *session.Store satisfies it.
type PlayerSessions interface {
	PlayerLogin(ctx context.Context, commanderID int64, password *secret.Buffer) (session.PlayerSession, error)
}

// Config holds configuration for creating a Flow.
type Config struct {
	// Challenges creates, polls and verifies challenges. Required.
	Challenges Challenges

	// Sessions performs the player login that finishes registration.
	// Required.
	Sessions PlayerSessions

	// Clock drives polling. Defaults to clock.Real().
	Clock clock.Clock

	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Snapshot is a copy of a Flow's observable state.
type Snapshot struct {
	State       State
	ChallengeID string
	CommanderID int64
	ExpiresAt   string
	// EchoedPIN is set only when the server returned the PIN with the
	// challenge.
	EchoedPIN string
	// Status is the last status the server reported.
	Status console.ChallengeStatus
	// Notice is the message to show, or empty.
	Notice string
	// Player is the signed-in player once State is SignedIn.
	Player *session.PlayerSession
}

// Flow drives one candidate player through registration: create a
// challenge, wait for it to be consumed by polling or PIN entry, then
// sign in with the original credentials exactly once. Safe for
// concurrent use; Poll and Verify may run at the same time.
type Flow struct {
	challenges   Challenges
	sessions     PlayerSessions
	clock        clock.Clock
	pollInterval time.Duration
	logger       *slog.Logger

	mu       sync.Mutex
	snapshot Snapshot
	password *secret.Buffer
	// epoch advances whenever the local challenge is replaced or
	// discarded; responses from an older epoch are dropped.
	epoch uint64

	notifyMu  sync.Mutex
	observers map[int]func(Snapshot)
	nextID    int
	pending   []Snapshot
	draining  bool
}

// New creates an idle Flow.
func New(config Config) (*Flow, error) {
	if config.Challenges == nil {
		return nil, errors.New("registration: Challenges is required")
	}
	if config.Sessions == nil {
		return nil, errors.New("registration: Sessions is required")
	}
	if config.PollInterval < 0 {
		return nil, fmt.Errorf("registration: PollInterval must not be negative, got %v", config.PollInterval)
	}
	flow := &Flow{
		challenges:   config.Challenges,
		sessions:     config.Sessions,
		clock:        config.Clock,
		pollInterval: config.PollInterval,
		logger:       config.Logger,
		snapshot:     Snapshot{State: Idle},
		observers:    make(map[int]func(Snapshot)),
	}
	if flow.clock == nil {
		flow.clock = clock.Real()
	}
	if flow.pollInterval == 0 {
		flow.pollInterval = DefaultPollInterval
	}
	if flow.logger == nil {
		flow.logger = slog.Default()
	}
	return flow, nil
}

// Snapshot returns the current state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) snapshotLocked() Snapshot {
	snapshot := f.snapshot
	if snapshot.Player != nil {
		player := *snapshot.Player
		snapshot.Player = &player
	}
	return snapshot
}

// Subscribe registers fn to receive a snapshot after every change, in
// order and never under the flow's lock. The returned function
// unsubscribes.
func (f *Flow) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	f.notifyMu.Lock()
	defer f.notifyMu.Unlock()
	id := f.nextID
	f.nextID++
	f.observers[id] = fn
	return func() {
		f.notifyMu.Lock()
		defer f.notifyMu.Unlock()
		delete(f.observers, id)
	}
}

func (f *Flow) publish(snapshot Snapshot) {
	f.notifyMu.Lock()
	f.pending = append(f.pending, snapshot)
	if f.draining {
		f.notifyMu.Unlock()
		return
	}
	f.draining = true
	for len(f.pending) > 0 {
		next := f.pending[0]
		f.pending = f.pending[1:]
		observers := make([]func(Snapshot), 0, len(f.observers))
		for _, fn := range f.observers {
			observers = append(observers, fn)
		}
		f.notifyMu.Unlock()
		for _, fn := range observers {
			fn(next)
		}
		f.notifyMu.Lock()
	}
	f.draining = false
	f.notifyMu.Unlock()
}

// unlockAndPublish releases the lock taken by the caller and publishes
// the state it left behind.
func (f *Flow) unlockAndPublish() {
	snapshot := f.snapshotLocked()
	f.mu.Unlock()
	f.publish(snapshot)
}

// fail records notice, publishes, and returns it as an *Error.
func (f *Flow) failLocked(notice string, cause error) error {
	f.snapshot.Notice = notice
	f.unlockAndPublish()
	return noticeError(notice, cause)
}

// discardLocked drops the local challenge and zeroes the password.
func (f *Flow) discardLocked() {
	f.epoch++
	if f.password != nil {
		f.password.Close()
		f.password = nil
	}
	f.snapshot = Snapshot{State: Idle}
}

// Start creates a challenge for commanderID. The flow keeps its own
// copy of password until the challenge ends; the caller keeps
// ownership of the buffer it passed. Starting replaces any challenge
// the flow held before.
func (f *Flow) Start(ctx context.Context, commanderID int64, password *secret.Buffer) error {
	f.mu.Lock()
	if commanderID <= 0 {
		return f.failLocked(NoticeInvalidCommanderID, ErrInvalidCommanderID)
	}
	if password == nil || password.Len() == 0 {
		return f.failLocked(NoticePasswordRequired, ErrPasswordRequired)
	}
	owned, err := password.Clone()
	if err != nil {
		f.mu.Unlock()
		return fmt.Errorf("registration: copying password: %w", err)
	}
	f.discardLocked()
	epoch := f.epoch
	f.snapshot.CommanderID = commanderID
	f.mu.Unlock()

	challenge, err := f.challenges.CreateRegistrationChallenge(ctx, commanderID, owned)

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		owned.Close()
		return context.Canceled
	}
	if err != nil {
		owned.Close()
		f.logger.Info("registration challenge rejected", "commander_id", commanderID, "error", err)
		return f.failLocked(CreateNotice(err), err)
	}
	f.password = owned
	f.snapshot = Snapshot{
		State:       Pending,
		ChallengeID: challenge.ChallengeID,
		CommanderID: commanderID,
		ExpiresAt:   challenge.ExpiresAt,
		EchoedPIN:   challenge.PIN,
		Status:      console.ChallengePending,
	}
	f.logger.Info("registration challenge created",
		"commander_id", commanderID,
		"challenge_id", challenge.ChallengeID,
		"expires_at", challenge.ExpiresAt,
	)
	f.unlockAndPublish()
	return nil
}

// CheckStatus asks the server for the challenge's status once and
// acts on it: a consumed challenge is finalized, an expired one ends
// the flow, an unknown one resets it.
func (f *Flow) CheckStatus(ctx context.Context) (console.ChallengeStatus, error) {
	f.mu.Lock()
	if !f.snapshot.State.Active() {
		state, status := f.snapshot.State, f.snapshot.Status
		f.mu.Unlock()
		if state.Terminal() || state == Finalizing {
			return status, nil
		}
		return "", ErrNoChallenge
	}
	epoch, challengeID := f.epoch, f.snapshot.ChallengeID
	f.mu.Unlock()

	response, err := f.challenges.RegistrationChallengeStatus(ctx, challengeID)

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return "", context.Canceled
	}
	if err != nil {
		if console.IsNotFound(err) {
			f.logger.Info("registration challenge vanished", "challenge_id", challengeID)
			f.discardLocked()
			return "", f.failLocked(NoticeStartOver, err)
		}
		f.mu.Unlock()
		f.logger.Warn("registration status check failed", "challenge_id", challengeID, "error", err)
		return "", err
	}
	return response.Status, f.observeLocked(ctx, epoch, response.Status)
}

// observeLocked applies a status the server reported for the current
// challenge. It releases the lock.
func (f *Flow) observeLocked(ctx context.Context, epoch uint64, status console.ChallengeStatus) error {
	switch status {
	case console.ChallengeConsumed:
		return f.finalizeLocked(ctx, epoch)
	case console.ChallengeExpired:
		if f.snapshot.State.Active() {
			f.snapshot.State = Expired
			f.snapshot.Status = status
			f.snapshot.Notice = NoticeChallengeExpired
			if f.password != nil {
				f.password.Close()
				f.password = nil
			}
			f.logger.Info("registration challenge expired", "challenge_id", f.snapshot.ChallengeID)
			f.unlockAndPublish()
			return nil
		}
	case console.ChallengePending:
		if f.snapshot.State == Verifying {
			f.snapshot.State = Pending
			f.unlockAndPublish()
			return nil
		}
	}
	f.mu.Unlock()
	return nil
}

// finalizeLocked signs the player in with the original credentials.
// The state flips to Finalizing before the lock is released, so
// however many poll and verify responses observe the consumed
// challenge, only the first reaches PlayerLogin. It releases the lock.
func (f *Flow) finalizeLocked(ctx context.Context, epoch uint64) error {
	if !f.snapshot.State.Active() {
		f.mu.Unlock()
		return nil
	}
	f.snapshot.State = Finalizing
	f.snapshot.Status = console.ChallengeConsumed
	f.snapshot.Notice = ""
	commanderID := f.snapshot.CommanderID
	password, err := f.password.Clone()
	if err != nil {
		f.snapshot.State = FinalizeFailed
		f.snapshot.Notice = "Sign in failed: " + err.Error()
		f.unlockAndPublish()
		return err
	}
	f.unlockAndPublish()

	player, err := f.sessions.PlayerLogin(ctx, commanderID, password)
	password.Close()

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return nil
	}
	if f.password != nil {
		f.password.Close()
		f.password = nil
	}
	if err != nil {
		f.snapshot.State = FinalizeFailed
		f.snapshot.Notice = "Sign in failed: " + errorMessage(err)
		f.logger.Warn("registration finalize failed", "commander_id", commanderID, "error", err)
		f.unlockAndPublish()
		return err
	}
	f.snapshot.State = SignedIn
	f.snapshot.Notice = ""
	f.snapshot.Player = &player
	f.logger.Info("registration finished", "commander_id", commanderID)
	f.unlockAndPublish()
	return nil
}

func errorMessage(err error) string {
	var apiErr *console.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// Verify submits a PIN read from the game. The PIN is normalized and
// checked locally first; a malformed PIN never reaches the server.
func (f *Flow) Verify(ctx context.Context, pin string) error {
	f.mu.Lock()
	if !f.snapshot.State.Active() {
		return f.failLocked(NoticeNoChallenge, ErrNoChallenge)
	}
	if strings.TrimSpace(pin) == "" {
		return f.failLocked(NoticePINRequired, ErrInvalidPIN)
	}
	normalized, err := NormalizePIN(pin)
	if err != nil {
		return f.failLocked(NoticePINFormat, err)
	}
	epoch, challengeID := f.epoch, f.snapshot.ChallengeID
	f.snapshot.State = Verifying
	f.snapshot.Notice = ""
	f.unlockAndPublish()

	response, err := f.challenges.VerifyRegistrationChallenge(ctx, challengeID, normalized)

	f.mu.Lock()
	if f.epoch != epoch {
		f.mu.Unlock()
		return context.Canceled
	}
	if err != nil {
		notice := VerifyNotice(err)
		if f.snapshot.State == Verifying {
			f.snapshot.State = Pending
			if console.IsAPIError(err, console.CodeChallengeExpired) {
				f.snapshot.State = Expired
				f.snapshot.Status = console.ChallengeExpired
				if f.password != nil {
					f.password.Close()
					f.password = nil
				}
			}
		}
		return f.failLocked(notice, err)
	}
	return f.observeLocked(ctx, epoch, response.Status)
}

// Poll checks the challenge now and then every poll interval until it
// leaves the pending state, the flow is reset or restarted, or ctx is
// cancelled. Transient check failures are logged and polling
// continues. Poll returns nil when the challenge resolved, whatever
// the outcome, and ctx.Err() on cancellation.
func (f *Flow) Poll(ctx context.Context) error {
	f.mu.Lock()
	if !f.snapshot.State.Active() {
		f.mu.Unlock()
		return ErrNoChallenge
	}
	epoch := f.epoch
	f.mu.Unlock()

	ticker := f.clock.NewTicker(f.pollInterval)
	defer ticker.Stop()
	for {
		if _, err := f.CheckStatus(ctx); err != nil {
			var flowErr *Error
			if errors.As(err, &flowErr) {
				// The challenge is gone; the flow already reset.
				return nil
			}
		}
		if !f.stillPolling(epoch) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if !f.stillPolling(epoch) {
			return nil
		}
	}
}

func (f *Flow) stillPolling(epoch uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.epoch == epoch && f.snapshot.State.Active()
}

// Reset abandons the current challenge, zeroes the held password and
// returns to Idle. In-flight requests finish, but their results are
// dropped.
func (f *Flow) Reset() {
	f.mu.Lock()
	if f.snapshot.State == Idle && f.password == nil && f.snapshot.Notice == "" {
		f.mu.Unlock()
		return
	}
	f.discardLocked()
	f.unlockAndPublish()
}
