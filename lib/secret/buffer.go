// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrEmpty is returned when a secret would be created from no bytes.
var ErrEmpty = errors.New("secret: empty")

// Buffer is a fixed-size secret in mmap-backed memory. Do not copy a
// Buffer; pass the pointer. Reading after Close panics.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	locked bool
	closed bool
}

// New allocates a zero-filled Buffer of size bytes.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: size must be positive, got %d", size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap: %w", err)
	}
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		unix.Munmap(data)
		return nil, fmt.Errorf("secret: madvise(MADV_DONTDUMP): %w", err)
	}
	// A low RLIMIT_MEMLOCK makes mlock fail with ENOMEM or EPERM. The
	// region is still off-heap and out of core dumps, so keep it.
	locked := unix.Mlock(data) == nil
	return &Buffer{data: data, locked: locked}, nil
}

// NewFromBytes copies source into a new Buffer and zeroes source.
func NewFromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, ErrEmpty
	}
	buffer, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(buffer.data, source)
	Zero(source)
	return buffer, nil
}

// NewFromString copies s into a new Buffer. The string itself cannot
// be wiped; use this only for values that already live on the heap,
// such as command-line flags.
func NewFromString(s string) (*Buffer, error) {
	return NewFromBytes([]byte(s))
}

// Bytes returns the secret. The slice aliases the mmap region and is
// invalid after Close.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.data
}

// String returns a heap copy of the secret for JSON request bodies.
func (b *Buffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		panic("secret: read from closed buffer")
	}
	return string(b.data)
}

// Len returns the secret length, or 0 after Close.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

// Locked reports whether the region is pinned in RAM.
func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Equal compares two buffers in constant time.
func (b *Buffer) Equal(other *Buffer) bool {
	if b == other {
		return true
	}
	if other == nil {
		return false
	}
	return subtle.ConstantTimeCompare(b.Bytes(), other.Bytes()) == 1
}

// Clone returns an independent copy of the secret.
func (b *Buffer) Clone() (*Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("secret: clone of closed buffer")
	}
	clone, err := New(len(b.data))
	if err != nil {
		return nil, err
	}
	copy(clone.data, b.data)
	return clone, nil
}

// Close zeroes and releases the memory. Idempotent; safe on nil.
func (b *Buffer) Close() error {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	Zero(b.data)

	var firstErr error
	if b.locked {
		if err := unix.Munlock(b.data); err != nil {
			firstErr = fmt.Errorf("secret: munlock: %w", err)
		}
	}
	if err := unix.Munmap(b.data); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("secret: munmap: %w", err)
	}
	b.data = nil
	return firstErr
}

// Zero overwrites data with zeroes.
func Zero(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
