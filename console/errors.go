// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a failed API call. Callers extract it with errors.As:
//
//	var apiErr *console.APIError
//	if errors.As(err, &apiErr) && apiErr.Code == console.CodeChallengeExists { ... }
type APIError struct {
	// Message is human readable and safe to show. Never empty.
	Message string
	// Code is the server's machine-readable code, if any.
	Code string
	// StatusCode is the HTTP status, or 0 when no response arrived.
	StatusCode int
	// Details is the server's optional structured detail object.
	Details map[string]any
	// RequestID is the X-Request-ID sent with the failing request.
	RequestID string
	// Err is the underlying transport or decoding error, if any.
	Err error
}

func (e *APIError) Error() string {
	var builder strings.Builder
	builder.WriteString(e.Message)
	if e.Code != "" {
		fmt.Fprintf(&builder, " [%s]", e.Code)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&builder, " (HTTP %d)", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&builder, ": %v", e.Err)
	}
	return builder.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether repeating the same request could succeed:
// no response at all, a timeout, rate limiting, or a server-side
// failure. Validation and business rejections are permanent.
func (e *APIError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.Code == CodeRateLimited:
		return true
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	}
	return false
}

// Server error codes the console reacts to.
const (
	CodeNotFound          = "not_found"
	CodeAccountExists     = "auth.account_exists"
	CodeChallengeExists   = "auth.challenge_exists"
	CodeRateLimited       = "auth.rate_limited"
	CodeChallengeInvalid  = "auth.challenge_invalid"
	CodeChallengeExpired  = "auth.challenge_expired"
	CodeChallengeConsumed = "auth.challenge_consumed"
)

// Fallback messages when a response carries none.
const (
	MessageRequestFailed      = "Request failed"
	MessageUnexpectedResponse = "Unexpected response body"
)

// IsAPIError reports whether err is an *APIError with the given code.
func IsAPIError(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// IsStatus reports whether err is an *APIError with the given HTTP
// status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// IsNotFound matches both the not_found code and a bare 404.
func IsNotFound(err error) bool {
	return IsAPIError(err, CodeNotFound) || IsStatus(err, http.StatusNotFound)
}

// IsRetryable reports whether err is an *APIError worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Retryable()
}

type errorEnvelope struct {
	Error *struct {
		Message string         `json:"message"`
		Code    string         `json:"code"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// errorFromBody builds the APIError for a non-2xx response: the JSON
// error message if present, otherwise the raw body text, otherwise
// MessageRequestFailed.
func errorFromBody(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope errorEnvelope
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		apiErr.Code = envelope.Error.Code
		apiErr.Details = envelope.Error.Details
		if message := strings.TrimSpace(envelope.Error.Message); message != "" {
			apiErr.Message = message
			return apiErr
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		apiErr.Message = text
		return apiErr
	}
	apiErr.Message = MessageRequestFailed
	return apiErr
}
