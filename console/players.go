// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"net/http"
)

func playerPath(id int64, suffix string) string {
	return "/players/" + pathID(id) + suffix
}

// Players lists players matching query.
func (c *Client) Players(ctx context.Context, query PlayerQuery) (*PlayerList, error) {
	path := newParams().page(query.Page).
		text("sort", query.Sort).
		text("filter", query.Filter).
		number("min_level", query.MinLevel).
		text("name", query.Name).
		with("/players")
	return get[PlayerList](ctx, c, path)
}

// Player returns one player.
func (c *Client) Player(ctx context.Context, id int64) (*PlayerDetail, error) {
	return get[PlayerDetail](ctx, c, playerPath(id, ""))
}

// UpdatePlayerProfile renames a player or sets their level.
func (c *Client) UpdatePlayerProfile(ctx context.Context, id int64, update ProfileUpdate) error {
	return do(ctx, c, http.MethodPatch, playerPath(id, ""), update)
}

// PlayerResources returns a player's balances.
func (c *Client) PlayerResources(ctx context.Context, id int64) (*PlayerResources, error) {
	return get[PlayerResources](ctx, c, playerPath(id, "/resources"))
}

// UpdatePlayerResources sets balances.
func (c *Client) UpdatePlayerResources(ctx context.Context, id int64, updates []ResourceUpdate) error {
	return do(ctx, c, http.MethodPut, playerPath(id, "/resources"), struct {
		Resources []ResourceUpdate `json:"resources"`
	}{nonNil(updates)})
}

// PlayerShips returns owned ships.
func (c *Client) PlayerShips(ctx context.Context, id int64) (*PlayerShips, error) {
	return get[PlayerShips](ctx, c, playerPath(id, "/ships"))
}

// UpdatePlayerShip changes an owned ship.
func (c *Client) UpdatePlayerShip(ctx context.Context, id, ownedID int64, update PlayerShipUpdate) error {
	return do(ctx, c, http.MethodPatch, playerPath(id, "/ships/"+pathID(ownedID)), update)
}

// GiveShip adds a ship.
func (c *Client) GiveShip(ctx context.Context, id, shipID int64) error {
	return do(ctx, c, http.MethodPost, playerPath(id, "/give-ship"), struct {
		ShipID int64 `json:"ship_id"`
	}{shipID})
}

// PlayerItems returns inventory.
func (c *Client) PlayerItems(ctx context.Context, id int64) (*PlayerItems, error) {
	return get[PlayerItems](ctx, c, playerPath(id, "/items"))
}

// GiveItem adds items.
func (c *Client) GiveItem(ctx context.Context, id int64, grant ItemGrant) error {
	return do(ctx, c, http.MethodPost, playerPath(id, "/give-item"), grant)
}

// SetPlayerItemQuantity sets an absolute item count.
func (c *Client) SetPlayerItemQuantity(ctx context.Context, id, itemID, quantity int64) error {
	return do(ctx, c, http.MethodPatch, playerPath(id, "/items/"+pathID(itemID)), struct {
		Quantity int64 `json:"quantity"`
	}{quantity})
}

// PlayerSkins returns owned skins.
func (c *Client) PlayerSkins(ctx context.Context, id int64) (*PlayerSkins, error) {
	return get[PlayerSkins](ctx, c, playerPath(id, "/skins"))
}

// GiveSkin adds a skin.
func (c *Client) GiveSkin(ctx context.Context, id int64, grant SkinGrant) error {
	return do(ctx, c, http.MethodPost, playerPath(id, "/give-skin"), grant)
}

// SendMail delivers in-game mail.
func (c *Client) SendMail(ctx context.Context, id int64, mail Mail) error {
	if mail.Attachments == nil {
		mail.Attachments = []MailAttachment{}
	}
	return do(ctx, c, http.MethodPost, playerPath(id, "/send-mail"), mail)
}

// BanPlayer bans a player.
func (c *Client) BanPlayer(ctx context.Context, id int64, ban Ban) error {
	return do(ctx, c, http.MethodPost, playerPath(id, "/ban"), ban)
}

// UnbanPlayer lifts a ban.
func (c *Client) UnbanPlayer(ctx context.Context, id int64) error {
	return do(ctx, c, http.MethodDelete, playerPath(id, "/ban"), nil)
}

// KickPlayer disconnects a player. kick may be nil.
func (c *Client) KickPlayer(ctx context.Context, id int64, kick *Kick) (*KickResult, error) {
	var body any
	if kick != nil {
		body = kick
	}
	return send[KickResult](ctx, c, http.MethodPost, playerPath(id, "/kick"), body)
}
