// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"net/http"
	"net/url"

	"github.com/belfast-foundation/belfast-console/lib/secret"
)

// Roles lists admin roles.
func (c *Client) Roles(ctx context.Context) (*RoleList, error) {
	return get[RoleList](ctx, c, "/admin/authz/roles")
}

// Permissions lists every resource key the server knows.
func (c *Client) Permissions(ctx context.Context) (*PermissionList, error) {
	return get[PermissionList](ctx, c, "/admin/authz/permissions")
}

// RolePolicy returns the grant table of role.
func (c *Client) RolePolicy(ctx context.Context, role string) (*RolePolicy, error) {
	return get[RolePolicy](ctx, c, "/admin/authz/roles/"+url.PathEscape(role))
}

// ReplaceRolePolicy replaces the grant table of role.
func (c *Client) ReplaceRolePolicy(ctx context.Context, role string, permissions []PermissionEntry) (*RolePolicy, error) {
	return send[RolePolicy](ctx, c, http.MethodPut, "/admin/authz/roles/"+url.PathEscape(role),
		policyUpdate{Permissions: nonNil(permissions)})
}

// AccountRoles returns the roles of an admin account.
func (c *Client) AccountRoles(ctx context.Context, accountID string) (*AccountRoles, error) {
	return get[AccountRoles](ctx, c, "/admin/authz/accounts/"+url.PathEscape(accountID)+"/roles")
}

// ReplaceAccountRoles replaces the roles of an admin account.
func (c *Client) ReplaceAccountRoles(ctx context.Context, accountID string, roles []string) (*AccountRoles, error) {
	return send[AccountRoles](ctx, c, http.MethodPut, "/admin/authz/accounts/"+url.PathEscape(accountID)+"/roles",
		rolesUpdate{Roles: nonNil(roles)})
}

// AccountOverrides returns the per-key overrides of an admin account.
func (c *Client) AccountOverrides(ctx context.Context, accountID string) (*AccountOverrides, error) {
	return get[AccountOverrides](ctx, c, "/admin/authz/accounts/"+url.PathEscape(accountID)+"/overrides")
}

// ReplaceAccountOverrides replaces the overrides of an admin account.
func (c *Client) ReplaceAccountOverrides(ctx context.Context, accountID string, overrides []AccountOverride) (*AccountOverrides, error) {
	return send[AccountOverrides](ctx, c, http.MethodPut, "/admin/authz/accounts/"+url.PathEscape(accountID)+"/overrides",
		overridesUpdate{Overrides: nonNil(overrides)})
}

// PlayerPermissionPolicy returns the policy applied to every player.
func (c *Client) PlayerPermissionPolicy(ctx context.Context) (*RolePolicy, error) {
	return get[RolePolicy](ctx, c, "/admin/permission-policy")
}

// UpdatePlayerPermissionPolicy replaces the player policy.
func (c *Client) UpdatePlayerPermissionPolicy(ctx context.Context, permissions []PermissionEntry) (*RolePolicy, error) {
	return send[RolePolicy](ctx, c, http.MethodPatch, "/admin/permission-policy",
		policyUpdate{Permissions: nonNil(permissions)})
}

// AdminUsers lists operator accounts.
func (c *Client) AdminUsers(ctx context.Context, page Page) (*AdminUserList, error) {
	return get[AdminUserList](ctx, c, newParams().page(page).with("/admin/users"))
}

// CreateAdminUser creates an operator account.
func (c *Client) CreateAdminUser(ctx context.Context, username string, password *secret.Buffer) (*AdminUser, error) {
	response, err := send[adminUserResponse](ctx, c, http.MethodPost, "/admin/users",
		credentialsRequest{Username: username, Password: password.String()})
	if err != nil {
		return nil, err
	}
	return &response.User, nil
}

// UpdateAdminUser renames or disables an operator account.
func (c *Client) UpdateAdminUser(ctx context.Context, id string, update AdminUserUpdate) (*AdminUser, error) {
	response, err := send[adminUserResponse](ctx, c, http.MethodPatch, "/admin/users/"+url.PathEscape(id), update)
	if err != nil {
		return nil, err
	}
	return &response.User, nil
}

// DeleteAdminUser removes an operator account.
func (c *Client) DeleteAdminUser(ctx context.Context, id string) error {
	return do(ctx, c, http.MethodDelete, "/admin/users/"+url.PathEscape(id), nil)
}

// ResetAdminPassword sets another operator's password.
func (c *Client) ResetAdminPassword(ctx context.Context, id string, password *secret.Buffer) error {
	return do(ctx, c, http.MethodPut, "/admin/users/"+url.PathEscape(id)+"/password",
		passwordSetRequest{Password: password.String()})
}

// nonNil makes an empty replacement encode as [] rather than null, so
// "replace with nothing" is not mistaken for "field absent".
func nonNil[T any](values []T) []T {
	if values == nil {
		return []T{}
	}
	return values
}
