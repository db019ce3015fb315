// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed encrypts the CLI's saved session file with age.
//
// The session file holds the admin cookie, which is as good as a
// password until it expires. When the configuration names an identity
// file, the CLI seals the session to that identity's recipient before
// writing and opens it with the identity when reading. Key files use
// the age-keygen format, so keys made with either tool work.
//
// Decrypted contents come back as [secret.Buffer] values in locked
// memory; the caller closes them after decoding.
package sealed
