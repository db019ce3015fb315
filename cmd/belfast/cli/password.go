// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/belfast-foundation/belfast-console/lib/secret"
)

// Prompter reads secrets for commands: from a file, from standard
// input, or interactively with echo disabled.
type Prompter struct {
	In  io.Reader
	Err io.Writer
}

// Password reads one password. source is a file path, "-" for the
// first line of standard input, or "" to prompt on the terminal.
func (p Prompter) Password(prompt, source string) (*secret.Buffer, error) {
	switch source {
	case "":
		return p.prompt(prompt)
	case "-":
		buffer, err := secret.ReadLine(p.In)
		if err != nil {
			return nil, Validation("reading password from standard input: %w", err)
		}
		return buffer, nil
	default:
		buffer, err := secret.ReadFromPath(source)
		if err != nil {
			return nil, Validation("reading password file: %w", err)
		}
		return buffer, nil
	}
}

// NewPassword reads a password being set. Interactive entry asks twice
// and fails when the two differ.
func (p Prompter) NewPassword(prompt, source string) (*secret.Buffer, error) {
	first, err := p.Password(prompt, source)
	if err != nil || source != "" {
		return first, err
	}
	second, err := p.prompt("Repeat " + lowerFirst(prompt))
	if err != nil {
		first.Close()
		return nil, err
	}
	defer second.Close()
	if !first.Equal(second) {
		first.Close()
		return nil, Validation("passwords do not match")
	}
	return first, nil
}

func (p Prompter) prompt(prompt string) (*secret.Buffer, error) {
	file, ok := p.In.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return nil, Validation("no terminal available for an interactive password prompt (use --password-file)")
	}
	fmt.Fprintf(p.Err, "%s: ", prompt)
	data, err := term.ReadPassword(int(file.Fd()))
	fmt.Fprintln(p.Err)
	if err != nil {
		return nil, Internal("reading password: %w", err)
	}
	if len(data) == 0 {
		return nil, Validation("password must not be empty")
	}
	buffer, err := secret.NewFromBytes(data)
	if err != nil {
		secret.Zero(data)
		return nil, err
	}
	return buffer, nil
}

func lowerFirst(text string) string {
	if text == "" || text[0] < 'A' || text[0] > 'Z' {
		return text
	}
	return string(text[0]+'a'-'A') + text[1:]
}
