// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"encoding/hex"
	"sort"
	"time"

	"github.com/zeebo/blake3"

	"github.com/belfast-foundation/belfast-console/console"
)

// Digest is a BLAKE3 keyed hash of a permission table. Two snapshots
// with equal digests grant exactly the same operations to the same
// roles.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Short is the first 12 hex characters, for log lines.
func (d Digest) Short() string { return d.String()[:12] }

// tableDomainKey is the ASCII domain name zero-padded to 32 bytes.
var tableDomainKey = [32]byte{
	'b', 'e', 'l', 'f', 'a', 's', 't', '.', 'p', 'e', 'r', 'm', 'i', 's', 's', 'i',
	'o', 'n', '.', 't', 'a', 'b', 'l', 'e', 0, 0, 0, 0, 0, 0, 0, 0,
}

// Snapshot is one fetched permission table. It is immutable; every
// method is safe on a nil Snapshot, which grants nothing.
type Snapshot struct {
	roles     []string
	entries   map[string]console.PermissionEntry
	keys      []string
	fetchedAt time.Time
	digest    Digest
}

// NewSnapshot builds a snapshot from a /me/permissions response.
// Duplicate keys are merged by granting the union of their flags.
func NewSnapshot(response *console.MePermissions, fetchedAt time.Time) *Snapshot {
	snapshot := &Snapshot{
		entries:   make(map[string]console.PermissionEntry),
		fetchedAt: fetchedAt,
	}
	if response == nil {
		snapshot.digest = digestOf(nil, nil, nil)
		return snapshot
	}
	snapshot.roles = append([]string(nil), response.Roles...)
	sort.Strings(snapshot.roles)
	for _, entry := range response.Permissions {
		if existing, ok := snapshot.entries[entry.Key]; ok {
			entry.ReadSelf = entry.ReadSelf || existing.ReadSelf
			entry.ReadAny = entry.ReadAny || existing.ReadAny
			entry.WriteSelf = entry.WriteSelf || existing.WriteSelf
			entry.WriteAny = entry.WriteAny || existing.WriteAny
		} else {
			snapshot.keys = append(snapshot.keys, entry.Key)
		}
		snapshot.entries[entry.Key] = entry
	}
	sort.Strings(snapshot.keys)
	snapshot.digest = digestOf(snapshot.roles, snapshot.keys, snapshot.entries)
	return snapshot
}

// digestOf hashes roles and entries in key order. Each key is followed
// by a NUL and one byte of grant bits, so reordering the server's
// response never changes the digest.
func digestOf(roles, keys []string, entries map[string]console.PermissionEntry) Digest {
	hasher, err := blake3.NewKeyed(tableDomainKey[:])
	if err != nil {
		// Only fails on a key of the wrong length.
		panic("permission: blake3 keyed hasher: " + err.Error())
	}
	hasher.Write([]byte{byte(len(roles))})
	for _, role := range roles {
		hasher.Write([]byte(role))
		hasher.Write([]byte{0})
	}
	for _, key := range keys {
		entry := entries[key]
		var bits byte
		for index, op := range Ops {
			if Evaluate(entry, op) {
				bits |= 1 << index
			}
		}
		hasher.Write([]byte(key))
		hasher.Write([]byte{0, bits})
	}
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}

// Loaded reports whether s holds a fetched table.
func (s *Snapshot) Loaded() bool { return s != nil }

// Can decides op on key. Unknown keys grant nothing.
func (s *Snapshot) Can(key string, op Op) bool {
	if s == nil {
		return false
	}
	entry, ok := s.entries[key]
	return ok && Evaluate(entry, op)
}

// Entry returns the effective entry for key.
func (s *Snapshot) Entry(key string) (console.PermissionEntry, bool) {
	if s == nil {
		return console.PermissionEntry{}, false
	}
	entry, ok := s.entries[key]
	return entry, ok
}

// Keys lists the keys present in the table, sorted.
func (s *Snapshot) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// Roles lists the principal's roles, sorted.
func (s *Snapshot) Roles() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.roles...)
}

// FetchedAt is when the table was received.
func (s *Snapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}

// Digest identifies the table's contents.
func (s *Snapshot) Digest() Digest {
	if s == nil {
		return Digest{}
	}
	return s.digest
}

// Require returns a *DeniedError unless op on key is granted.
func (s *Snapshot) Require(key string, op Op) error {
	if s.Can(key, op) {
		return nil
	}
	return &DeniedError{Key: key, Op: op}
}

// CanActOn decides access on key for a specific commander. An "any"
// grant covers every target; a "self" grant covers only the
// principal's own commander. A zero self never matches.
func (s *Snapshot) CanActOn(key string, access Access, self, target int64) bool {
	if s.Can(key, access.Any()) {
		return true
	}
	return self > 0 && target == self && s.Can(key, access.Self())
}

// RequireActOn is CanActOn returning the denial to show. The missing
// operation reported is the narrowest one that would have allowed the
// action.
func (s *Snapshot) RequireActOn(key string, access Access, self, target int64) error {
	if s.CanActOn(key, access, self, target) {
		return nil
	}
	if self > 0 && target == self {
		return &DeniedError{Key: key, Op: access.Self()}
	}
	return &DeniedError{Key: key, Op: access.Any()}
}
