// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"net/http"
)

// ServerStatus returns whether the game server runs and accepts clients.
func (c *Client) ServerStatus(ctx context.Context) (*ServerStatus, error) {
	return get[ServerStatus](ctx, c, "/server/status")
}

// ServerMetrics returns live counters.
func (c *Client) ServerMetrics(ctx context.Context) (*ServerMetrics, error) {
	return get[ServerMetrics](ctx, c, "/server/metrics")
}

// ServerUptime returns the uptime.
func (c *Client) ServerUptime(ctx context.Context) (*ServerUptime, error) {
	return get[ServerUptime](ctx, c, "/server/uptime")
}

// Connections lists connected game clients.
func (c *Client) Connections(ctx context.Context) ([]Connection, error) {
	connections, err := get[[]Connection](ctx, c, "/server/connections")
	if err != nil {
		return nil, err
	}
	return *connections, nil
}

// Maintenance reads the maintenance switch.
func (c *Client) Maintenance(ctx context.Context) (*Maintenance, error) {
	return get[Maintenance](ctx, c, "/server/maintenance")
}

// SetMaintenance flips the maintenance switch.
func (c *Client) SetMaintenance(ctx context.Context, enabled bool) (*Maintenance, error) {
	return send[Maintenance](ctx, c, http.MethodPost, "/server/maintenance", Maintenance{Enabled: enabled})
}

// StartServer starts the game server.
func (c *Client) StartServer(ctx context.Context) error {
	return do(ctx, c, http.MethodPost, "/server/start", nil)
}

// StopServer stops the game server.
func (c *Client) StopServer(ctx context.Context) error {
	return do(ctx, c, http.MethodPost, "/server/stop", nil)
}

// RestartServer restarts the game server.
func (c *Client) RestartServer(ctx context.Context) error {
	return do(ctx, c, http.MethodPost, "/server/restart", nil)
}

// ActivityAllowlist returns the enabled activity ids.
func (c *Client) ActivityAllowlist(ctx context.Context) (*ActivityAllowlist, error) {
	return get[ActivityAllowlist](ctx, c, "/activities/allowlist")
}

// UpdateActivityAllowlist replaces the enabled activity ids.
func (c *Client) UpdateActivityAllowlist(ctx context.Context, ids []int64) (*ActivityAllowlist, error) {
	return send[ActivityAllowlist](ctx, c, http.MethodPut, "/activities/allowlist", ActivityAllowlist{IDs: nonNil(ids)})
}
