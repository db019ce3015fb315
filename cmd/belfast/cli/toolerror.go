// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/permission"
	"github.com/belfast-foundation/belfast-console/lib/registration"
	"github.com/belfast-foundation/belfast-console/lib/secret"
	"github.com/belfast-foundation/belfast-console/lib/session"
)

// ErrorCategory classifies command errors so scripts can decide what
// to do (fix input, sign in, retry) from the exit code alone.
type ErrorCategory string

const (
	// CategoryValidation: the caller provided invalid input. Fix it and
	// run again.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound: a referenced player, role or challenge does not
	// exist.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden: the principal is not signed in or lacks the
	// permission for the operation.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict: the operation conflicts with server state, such
	// as an existing account or an active challenge.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient: network failure, timeout, rate limit or a
	// server-side error. Retrying later may succeed.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal: anything else.
	CategoryInternal ErrorCategory = "internal"
)

// Exit codes of the belfast command.
const (
	ExitFailure          = 1
	ExitValidation       = 2
	ExitPermissionDenied = 3
)

// ToolError is a categorized error returned by commands. It wraps the
// underlying error so errors.Is and errors.As keep working.
type ToolError struct {
	Category ErrorCategory
	Err      error

	// Hint is an optional next step appended to the message after a
	// blank line.
	Hint string
}

func (e *ToolError) Error() string {
	if e.Hint == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + "\n\n" + e.Hint
}

func (e *ToolError) Unwrap() error { return e.Err }

// WithHint sets the hint and returns the receiver.
func (e *ToolError) WithHint(hint string) *ToolError {
	e.Hint = hint
	return e
}

// ExitCode maps the category onto the process exit code.
func (e *ToolError) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return ExitValidation
	case CategoryForbidden:
		return ExitPermissionDenied
	default:
		return ExitFailure
	}
}

// Retryable reports whether running the command again may succeed.
func (e *ToolError) Retryable() bool { return e.Category == CategoryTransient }

func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}

// Classify wraps err in a ToolError chosen from what the error says
// about the failure. Errors that are already ToolErrors are returned
// unchanged; nil stays nil.
func Classify(err error) *ToolError {
	if err == nil {
		return nil
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}

	category := classify(err)
	classified := &ToolError{Category: category, Err: err}
	var flowErr *registration.Error
	if category == CategoryTransient && errors.As(err, &flowErr) {
		classified.Hint = "The request may succeed if you try again."
	}
	if errors.Is(err, session.ErrNotAuthenticated) || console.IsStatus(err, http.StatusUnauthorized) {
		classified.Hint = "Run 'belfast login' to sign in."
	}
	return classified
}

func classify(err error) ErrorCategory {
	switch {
	case permission.IsDenied(err),
		errors.Is(err, session.ErrNotAuthenticated),
		console.IsStatus(err, http.StatusUnauthorized):
		return CategoryForbidden

	case errors.Is(err, registration.ErrInvalidCommanderID),
		errors.Is(err, registration.ErrPasswordRequired),
		errors.Is(err, registration.ErrInvalidPIN),
		errors.Is(err, session.ErrInvalidCommanderID),
		errors.Is(err, secret.ErrEmpty):
		return CategoryValidation

	case errors.Is(err, registration.ErrNoChallenge):
		return CategoryConflict

	case errors.Is(err, context.DeadlineExceeded):
		return CategoryTransient
	}

	var apiErr *console.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Retryable():
			return CategoryTransient
		case apiErr.StatusCode == http.StatusNotFound:
			return CategoryNotFound
		case apiErr.StatusCode == http.StatusConflict:
			return CategoryConflict
		case apiErr.StatusCode == http.StatusBadRequest, apiErr.StatusCode == http.StatusUnprocessableEntity:
			return CategoryValidation
		}
	}
	return CategoryInternal
}

// ExitCode returns the process exit code for err: the code carried by
// an *ExitError, otherwise the code of its category. nil is 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return Classify(err).ExitCode()
}
