// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/belfast-foundation/belfast-console/console"
	"github.com/belfast-foundation/belfast-console/lib/clock"
	"github.com/belfast-foundation/belfast-console/lib/session"
)

// Source fetches the current principal's effective permissions.
// *console.Client satisfies it.
type Source interface {
	MePermissions(ctx context.Context) (*console.MePermissions, error)
}

// Principals is the part of the session store the cache follows.
// *session.Store satisfies it.
type Principals interface {
	Principal() session.Principal
	Subscribe(fn func(session.Transition)) (unsubscribe func())
}

// Config holds configuration for creating a Cache.
type Config struct {
	// Source is queried on every refresh. Required.
	Source Source

	// Clock stamps snapshots. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Cache holds the permission table of the current principal. It never
// retries a failed fetch on its own: until the next refresh every
// check is denied. Safe for concurrent use.
type Cache struct {
	source Source
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.RWMutex
	snapshot *Snapshot
	err      error
	// generation advances on Clear; a fetch that started in an older
	// generation is discarded.
	generation uint64
	// lastDigest survives Clear so a reload can log whether the table
	// actually changed.
	lastDigest Digest
}

// New creates an empty Cache.
func New(config Config) (*Cache, error) {
	if config.Source == nil {
		return nil, errors.New("permission: Source is required")
	}
	cache := &Cache{
		source: config.Source,
		clock:  config.Clock,
		logger: config.Logger,
	}
	if cache.clock == nil {
		cache.clock = clock.Real()
	}
	if cache.logger == nil {
		cache.logger = slog.Default()
	}
	return cache, nil
}

// Snapshot returns the current table, or nil when none is loaded.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

// Err returns the error of the last refresh, if it failed.
func (c *Cache) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Can decides op on key against the current table.
func (c *Cache) Can(key string, op Op) bool { return c.Snapshot().Can(key, op) }

// Require returns nil if op on key is granted. Otherwise it returns
// the error of a failed fetch, or a *DeniedError.
func (c *Cache) Require(key string, op Op) error {
	c.mu.RLock()
	snapshot, fetchErr := c.snapshot, c.err
	c.mu.RUnlock()
	if snapshot == nil && fetchErr != nil {
		return fetchErr
	}
	return snapshot.Require(key, op)
}

// Refresh fetches the table and installs it. A failed fetch empties
// the cache. If Clear runs while the fetch is in flight, the result is
// discarded and Refresh returns the cleared state.
func (c *Cache) Refresh(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	generation := c.generation
	c.mu.RUnlock()

	response, err := c.source.MePermissions(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		c.logger.Debug("discarding permissions fetched for a previous principal")
		return c.snapshot, nil
	}
	if err != nil {
		c.snapshot = nil
		c.err = err
		c.logger.Warn("permissions refresh failed", "error", err)
		return nil, err
	}

	snapshot := NewSnapshot(response, c.clock.Now())
	c.snapshot = snapshot
	c.err = nil
	changed := c.lastDigest != snapshot.Digest()
	c.lastDigest = snapshot.Digest()
	c.logger.Info("permissions loaded",
		"keys", len(snapshot.keys),
		"roles", snapshot.roles,
		"digest", snapshot.Digest().Short(),
		"changed", changed,
	)
	return snapshot, nil
}

// Invalidate refetches the table after the caller changed RBAC state
// on the server. Failures are recorded like any refresh.
func (c *Cache) Invalidate(ctx context.Context) error {
	_, err := c.Refresh(ctx)
	return err
}

// Clear drops the table and abandons in-flight fetches.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.snapshot = nil
	c.err = nil
}

// Follow keeps the cache in step with principals: the table is loaded
// when a principal becomes authenticated, reloaded when the
// authenticated principal changes, and cleared when it becomes
// anonymous. Fetches run on the goroutine that changed the principal,
// so a completed Login has a loaded table. Follow loads immediately if
// a principal is already signed in. The returned function stops
// following.
func (c *Cache) Follow(ctx context.Context, principals Principals) (stop func()) {
	unsubscribe := principals.Subscribe(func(transition session.Transition) {
		c.Clear()
		if transition.Current.Authenticated() {
			c.Refresh(ctx)
		}
	})
	if principals.Principal().Authenticated() {
		c.Refresh(ctx)
	}
	return unsubscribe
}
