// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/belfast-foundation/belfast-console/console"
)

// DeniedError is the denial state a view shows instead of empty data.
type DeniedError struct {
	Key string
	Op  Op
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("Permission denied, missing permission: %s (%s).", e.Key, e.Op.Label())
}

// IsDenied reports whether err is a local denial or a 403 from the
// server.
func IsDenied(err error) bool {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return true
	}
	return console.IsStatus(err, http.StatusForbidden)
}
