// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"context"
	"net/http"
)

// Ships lists catalog ships.
func (c *Client) Ships(ctx context.Context, query ShipQuery) (*ShipList, error) {
	path := newParams().page(query.Page).
		number("rarity", query.Rarity).
		number("type", query.Type).
		number("nationality", query.Nationality).
		text("name", query.Name).
		with("/ships")
	return get[ShipList](ctx, c, path)
}

// ShipSkins lists the skins of one ship.
func (c *Client) ShipSkins(ctx context.Context, shipID int64) (*ShipSkinList, error) {
	return get[ShipSkinList](ctx, c, "/ships/"+pathID(shipID)+"/skins")
}

// Skins lists catalog skins.
func (c *Client) Skins(ctx context.Context, page Page) (*SkinList, error) {
	return get[SkinList](ctx, c, newParams().page(page).with("/skins"))
}

// Items lists catalog items.
func (c *Client) Items(ctx context.Context, page Page) (*ItemList, error) {
	return get[ItemList](ctx, c, newParams().page(page).with("/items"))
}

// Notices lists in-game notices.
func (c *Client) Notices(ctx context.Context, page Page) (*NoticeList, error) {
	return get[NoticeList](ctx, c, newParams().page(page).with("/notices"))
}

// CreateNotice publishes a notice.
func (c *Client) CreateNotice(ctx context.Context, notice Notice) error {
	return do(ctx, c, http.MethodPost, "/notices", notice)
}

// UpdateNotice replaces a notice.
func (c *Client) UpdateNotice(ctx context.Context, id int64, notice Notice) error {
	return do(ctx, c, http.MethodPut, "/notices/"+pathID(id), notice)
}

// DeleteNotice removes a notice.
func (c *Client) DeleteNotice(ctx context.Context, id int64) error {
	return do(ctx, c, http.MethodDelete, "/notices/"+pathID(id), nil)
}

// ExchangeCodes lists gift codes.
func (c *Client) ExchangeCodes(ctx context.Context, page Page) (*ExchangeCodeList, error) {
	return get[ExchangeCodeList](ctx, c, newParams().page(page).with("/exchange-codes"))
}

// CreateExchangeCode creates a gift code.
func (c *Client) CreateExchangeCode(ctx context.Context, code ExchangeCode) error {
	code.ID = 0
	if code.Rewards == nil {
		code.Rewards = []ExchangeReward{}
	}
	return do(ctx, c, http.MethodPost, "/exchange-codes", code)
}

// ExchangeCodeRedeems lists redemptions of a code.
func (c *Client) ExchangeCodeRedeems(ctx context.Context, id int64, page Page) (*ExchangeCodeRedeemList, error) {
	return get[ExchangeCodeRedeemList](ctx, c, newParams().page(page).with("/exchange-codes/"+pathID(id)+"/redeems"))
}

// RedeemExchangeCode records a redemption for a commander.
func (c *Client) RedeemExchangeCode(ctx context.Context, id, commanderID int64) error {
	return do(ctx, c, http.MethodPost, "/exchange-codes/"+pathID(id)+"/redeems", redeemRequest{CommanderID: commanderID})
}
