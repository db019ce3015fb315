// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"fmt"
	"strings"

	"github.com/belfast-foundation/belfast-console/console"
)

// Op is one of the four operations a policy entry grants.
type Op string

const (
	ReadSelf  Op = "read_self"
	ReadAny   Op = "read_any"
	WriteSelf Op = "write_self"
	WriteAny  Op = "write_any"
)

// Ops lists every operation in display order.
var Ops = []Op{ReadSelf, ReadAny, WriteSelf, WriteAny}

// ParseOp accepts "read_self", "read-self" or "read self" in any case.
func ParseOp(value string) (Op, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	op := Op(normalized)
	if !op.Valid() {
		return "", fmt.Errorf("unknown permission operation %q (want read_self, read_any, write_self or write_any)", value)
	}
	return op, nil
}

// Valid reports whether o is one of the four operations.
func (o Op) Valid() bool {
	switch o {
	case ReadSelf, ReadAny, WriteSelf, WriteAny:
		return true
	}
	return false
}

// Label is the human form used in denial messages: "read self".
func (o Op) Label() string { return strings.ReplaceAll(string(o), "_", " ") }

// Access returns whether o reads or writes.
func (o Op) Access() Access {
	if o == WriteSelf || o == WriteAny {
		return Write
	}
	return Read
}

// Access is the read or write half of an operation, before the target
// scope is known.
type Access int

const (
	Read Access = iota
	Write
)

func (a Access) String() string {
	if a == Write {
		return "write"
	}
	return "read"
}

// Self is the operation acting on the principal's own commander.
func (a Access) Self() Op {
	if a == Write {
		return WriteSelf
	}
	return ReadSelf
}

// Any is the operation acting on any commander.
func (a Access) Any() Op {
	if a == Write {
		return WriteAny
	}
	return ReadAny
}

// Evaluate decides op against one policy entry. An "any" grant implies
// the matching "self" grant.
func Evaluate(entry console.PermissionEntry, op Op) bool {
	switch op {
	case ReadSelf:
		return entry.ReadSelf || entry.ReadAny
	case ReadAny:
		return entry.ReadAny
	case WriteSelf:
		return entry.WriteSelf || entry.WriteAny
	case WriteAny:
		return entry.WriteAny
	default:
		return false
	}
}
