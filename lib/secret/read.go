// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
)

// ReadLine reads the first line of r into a Buffer. A trailing "\r\n"
// or "\n" is dropped; other whitespace is part of the password.
func ReadLine(r io.Reader) (*Buffer, error) {
	reader := bufio.NewReader(r)
	line, err := reader.ReadBytes('\n')
	if err != nil && err != io.EOF {
		Zero(line)
		return nil, fmt.Errorf("secret: reading line: %w", err)
	}
	trimmed := bytes.TrimRight(line, "\r\n")
	if len(trimmed) == 0 {
		Zero(line)
		return nil, ErrEmpty
	}
	buffer, err := NewFromBytes(trimmed)
	Zero(line)
	return buffer, err
}

// ReadFromPath reads a password file, or standard input when path is
// "-". Only the first line is used.
func ReadFromPath(path string) (*Buffer, error) {
	if path == "-" {
		return ReadLine(os.Stdin)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	buffer, err := ReadLine(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return buffer, nil
}
