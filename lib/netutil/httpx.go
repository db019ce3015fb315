// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds bounded I/O helpers shared by the API client
// and the external passkey helper.
//
// Every response body from the admin API and every JSON document read
// from a helper process goes through ReadResponse or DecodeResponse so
// that a misbehaving peer cannot make the console allocate without
// bound.
package netutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxResponseSize bounds a single response body: 32 MiB. Player lists
// and catalogs are the largest documents the API returns and are far
// below this.
const MaxResponseSize int64 = 32 << 20

// ErrResponseTooLarge is returned when a body exceeds MaxResponseSize.
var ErrResponseTooLarge = errors.New("response body exceeds size limit")

// ReadResponse reads body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, ErrResponseTooLarge
	}
	return data, nil
}

// DecodeResponse reads body with ReadResponse and JSON-decodes it into
// v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	return json.Unmarshal(data, v)
}
