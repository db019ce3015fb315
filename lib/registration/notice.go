// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package registration

import (
	"errors"
	"regexp"
	"strings"

	"github.com/belfast-foundation/belfast-console/console"
)

// Notices shown to the candidate player.
const (
	NoticeInvalidCommanderID = "Commander ID must be greater than 0."
	NoticePasswordRequired   = "Password is required."
	NoticeNoChallenge        = "No active challenge."
	NoticePINRequired        = "PIN is required."
	NoticePINFormat          = "PIN must be 6 digits, optionally prefixed with B-."

	NoticeAccountExists   = "Account already exists."
	NoticeChallengeExists = "A challenge is already active. Try again later or verify the PIN."
	NoticeRateLimited     = "Too many attempts. Try again later."

	NoticeChallengeNotFound = "Challenge not found."
	NoticeInvalidPIN        = "Invalid PIN."
	NoticePINExpired        = "PIN expired."
	NoticeChallengeUsed     = "Challenge already used."

	NoticeChallengeExpired = "Challenge expired. Create a new one."
	NoticeStartOver        = "Challenge not found. Start over."
)

var (
	ErrInvalidCommanderID = errors.New("registration: commander id must be greater than 0")
	ErrPasswordRequired   = errors.New("registration: password is required")
	ErrNoChallenge        = errors.New("registration: no active challenge")
	ErrInvalidPIN         = errors.New("registration: PIN must be 6 digits, optionally prefixed with B-")
)

// Error carries the notice to show for a failed step alongside the
// cause. errors.Is and errors.As see through to Err.
type Error struct {
	Notice string
	Err    error
}

func (e *Error) Error() string { return e.Notice }

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same step may succeed.
func (e *Error) Retryable() bool { return console.IsRetryable(e.Err) }

func noticeError(notice string, err error) *Error { return &Error{Notice: notice, Err: err} }

var pinPattern = regexp.MustCompile(`^(B-)?\d{6}$`)

// NormalizePIN trims and upper-cases pin and checks it is six digits,
// optionally prefixed with "B-". "b-123456" becomes "B-123456".
func NormalizePIN(pin string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(pin))
	if !pinPattern.MatchString(normalized) {
		return "", ErrInvalidPIN
	}
	return normalized, nil
}

// CreateNotice maps a challenge-creation failure onto its notice.
// Unknown failures show the server's message.
func CreateNotice(err error) string {
	var apiErr *console.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Code {
	case console.CodeAccountExists:
		return NoticeAccountExists
	case console.CodeChallengeExists:
		return NoticeChallengeExists
	case console.CodeRateLimited:
		return NoticeRateLimited
	default:
		return apiErr.Message
	}
}

// VerifyNotice maps a PIN verification failure onto its notice.
// Unknown failures show the server's message.
func VerifyNotice(err error) string {
	var apiErr *console.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	if console.IsNotFound(err) {
		return NoticeChallengeNotFound
	}
	switch apiErr.Code {
	case console.CodeChallengeInvalid:
		return NoticeInvalidPIN
	case console.CodeChallengeExpired:
		return NoticePINExpired
	case console.CodeChallengeConsumed:
		return NoticeChallengeUsed
	case console.CodeAccountExists:
		return NoticeAccountExists
	default:
		return apiErr.Message
	}
}
