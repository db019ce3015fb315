// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package permission

import (
	"context"

	"github.com/belfast-foundation/belfast-console/console"
)

// AuthzKey guards role, account and player-policy administration.
const AuthzKey = "admin.authz"

// Admin edits RBAC state and reloads the cache after every successful
// edit, since any of them can change the editor's own permissions.
type Admin struct {
	client *console.Client
	cache  *Cache
}

// NewAdmin returns an Admin issuing requests through client.
func NewAdmin(client *console.Client, cache *Cache) *Admin {
	return &Admin{client: client, cache: cache}
}

// ReplaceRolePolicy replaces every entry of role.
func (a *Admin) ReplaceRolePolicy(ctx context.Context, role string, entries []console.PermissionEntry) (*console.RolePolicy, error) {
	if err := a.cache.Require(AuthzKey, WriteAny); err != nil {
		return nil, err
	}
	policy, err := a.client.ReplaceRolePolicy(ctx, role, entries)
	if err != nil {
		return nil, err
	}
	a.reload(ctx)
	return policy, nil
}

// ReplaceAccountRoles sets the roles of an operator account.
func (a *Admin) ReplaceAccountRoles(ctx context.Context, accountID string, roles []string) (*console.AccountRoles, error) {
	if err := a.cache.Require(AuthzKey, WriteAny); err != nil {
		return nil, err
	}
	result, err := a.client.ReplaceAccountRoles(ctx, accountID, roles)
	if err != nil {
		return nil, err
	}
	a.reload(ctx)
	return result, nil
}

// ReplaceAccountOverrides sets the allow and deny overrides of an
// operator account.
func (a *Admin) ReplaceAccountOverrides(ctx context.Context, accountID string, overrides []console.AccountOverride) (*console.AccountOverrides, error) {
	if err := a.cache.Require(AuthzKey, WriteAny); err != nil {
		return nil, err
	}
	result, err := a.client.ReplaceAccountOverrides(ctx, accountID, overrides)
	if err != nil {
		return nil, err
	}
	a.reload(ctx)
	return result, nil
}

// UpdatePlayerPolicy replaces the policy every player account gets.
func (a *Admin) UpdatePlayerPolicy(ctx context.Context, entries []console.PermissionEntry) (*console.RolePolicy, error) {
	if err := a.cache.Require(AuthzKey, WriteAny); err != nil {
		return nil, err
	}
	policy, err := a.client.UpdatePlayerPermissionPolicy(ctx, entries)
	if err != nil {
		return nil, err
	}
	a.reload(ctx)
	return policy, nil
}

// reload refreshes the cache. The edit already succeeded, so a failed
// reload is left for the cache to report through Err and Require.
func (a *Admin) reload(ctx context.Context) {
	a.cache.Invalidate(ctx)
}
