// Copyright 2026 The Belfast Authors
// SPDX-License-Identifier: Apache-2.0

package console

import (
	"net/url"
	"strconv"
)

// Page selects a window of a paginated list. Zero fields are omitted
// and the server's defaults apply.
type Page struct {
	Offset int
	Limit  int
}

// params accumulates query parameters, dropping unset values.
type params struct {
	values url.Values
}

func newParams() *params { return &params{values: url.Values{}} }

func (p *params) text(key, value string) *params {
	if value != "" {
		p.values.Set(key, value)
	}
	return p
}

func (p *params) number(key string, value int) *params {
	if value != 0 {
		p.values.Set(key, strconv.Itoa(value))
	}
	return p
}

func (p *params) page(page Page) *params {
	return p.number("offset", page.Offset).number("limit", page.Limit)
}

// with appends the encoded parameters to path, or returns path as-is
// when there are none.
func (p *params) with(path string) string {
	if len(p.values) == 0 {
		return path
	}
	return path + "?" + p.values.Encode()
}

func pathID(id int64) string { return strconv.FormatInt(id, 10) }
