// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"errors"
	"fmt"
)

// ExitError signals a non-zero exit without an extra error message.
// The command has already written its own output; "belfast can"
// returning 3 for a denied operation is the typical case.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// Silent reports whether err should end the process without printing.
func Silent(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}
